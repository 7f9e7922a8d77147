package goauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coursehub/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

const codePrefix = "register:"

// Pending is a registration waiting for its emailed code.
type Pending struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
}

type RedisCodes struct {
	rdb *redis.Client
}

func NewRedisCodes(rdb *redis.Client) *RedisCodes {
	return &RedisCodes{rdb: rdb}
}

// Put stores p under code unless the code is already taken.
func (c *RedisCodes) Put(ctx context.Context, code string, p Pending, ttl time.Duration) (bool, error) {
	val, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode pending registration: %w", err)
	}
	ok, err := c.rdb.SetNX(ctx, codePrefix+code, val, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("store registration code: %w", err)
	}
	return ok, nil
}

// Take returns the registration stored under code and removes it, so a code
// works once.
func (c *RedisCodes) Take(ctx context.Context, code string) (Pending, error) {
	val, err := c.rdb.GetDel(ctx, codePrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, apperr.BadRequest("invalid or expired code")
	}
	if err != nil {
		return Pending{}, fmt.Errorf("load registration code: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(val, &p); err != nil {
		return Pending{}, fmt.Errorf("decode pending registration: %w", err)
	}
	return p, nil
}
