package kfka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
	closed bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func message(t *testing.T, v any, offset int64) kafka.Message {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Value: data, Offset: offset}
}

func TestConsumeSkipsBadMessagesAndFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeReader{cancel: cancel, msgs: []kafka.Message{
		message(t, ExamResultEvent{UserID: 1, Score: 33}, 0),
		{Value: []byte("{not json"), Offset: 1},
		message(t, ExamResultEvent{UserID: 2, Score: 100}, 2),
		message(t, ExamResultEvent{UserID: 3, Score: 67}, 3),
	}}

	var seen []uint
	handle := func(_ context.Context, e ExamResultEvent) error {
		seen = append(seen, e.UserID)
		if e.UserID == 2 {
			return errors.New("smtp down")
		}
		return nil
	}

	consume[ExamResultEvent](ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), r, handle)

	assert.Equal(t, []uint{1, 2, 3}, seen)
	assert.True(t, r.closed)
}

func TestEventKeys(t *testing.T) {
	assert.Equal(t, "exam_result", (&ExamResultEvent{}).Key())
	assert.Equal(t, "course", (&PurchaseEvent{Kind: PurchaseCourse}).Key())
	assert.Equal(t, "pro_membership", (&PurchaseEvent{Kind: PurchasePro}).Key())
}
