package content

// ProgressDocument mirrors a course's unit tree but carries only the
// per-user progress fields.
type ProgressDocument struct {
	Status ProgressStatus  `json:"status"`
	Units  []*ProgressNode `json:"units"`
}

type ProgressNode struct {
	ID       NodeID          `json:"id"`
	Status   ProgressStatus  `json:"status"`
	SubUnits []*ProgressNode `json:"sub_units"`
	Exam     *ExamProgress   `json:"exam,omitempty"`
}

type ExamProgress struct {
	Status          ProgressStatus `json:"status"`
	RetriesTaken    int            `json:"retries_taken"`
	Result          *ExamResult    `json:"result,omitempty"`
	PreviousResults []ExamResult   `json:"previous_results"`
}

// NewProgressDocument builds a fresh progress document for the whole unit
// tree of doc: every unit and exam NOT_STARTED, no retries, no results.
func NewProgressDocument(doc *CourseDocument) *ProgressDocument {
	return &ProgressDocument{
		Status: NotStarted,
		Units:  newProgressNodes(doc.Units),
	}
}

func newProgressNodes(units []*Unit) []*ProgressNode {
	nodes := make([]*ProgressNode, 0, len(units))
	for _, u := range units {
		node := &ProgressNode{
			ID:       u.ID,
			Status:   NotStarted,
			SubUnits: newProgressNodes(u.SubUnits),
		}
		if u.Exam != nil {
			node.Exam = &ExamProgress{
				Status:          NotStarted,
				PreviousResults: []ExamResult{},
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// FindNode searches depth-first and returns the first node whose id
// matches, using the same order as FindUnit.
func FindNode(nodes []*ProgressNode, id NodeID) *ProgressNode {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if found := FindNode(n.SubUnits, id); found != nil {
			return found
		}
	}
	return nil
}

// WalkNodes visits every progress node depth-first.
func WalkNodes(nodes []*ProgressNode, fn func(n *ProgressNode)) {
	for _, n := range nodes {
		fn(n)
		WalkNodes(n.SubUnits, fn)
	}
}

// Overlay copies progress onto the canonical document in place. Units are
// matched to progress nodes by id among siblings, so reordering content
// after progress exists keeps each status with its unit. Units without a
// progress node are reported as NOT_STARTED. Retry counters are left to the
// grading path.
func Overlay(doc *CourseDocument, progress *ProgressDocument) {
	doc.Status = StatusPtr(progress.Status)
	overlayUnits(doc.Units, progress.Units)
}

func overlayUnits(units []*Unit, nodes []*ProgressNode) {
	byID := make(map[NodeID]*ProgressNode, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = n
		}
	}
	for _, u := range units {
		node := byID[u.ID]
		if node == nil {
			u.Status = StatusPtr(NotStarted)
			if u.Exam != nil {
				u.Exam.Status = StatusPtr(NotStarted)
				u.Exam.Result = nil
				u.Exam.PreviousResults = []ExamResult{}
			}
			overlayUnits(u.SubUnits, nil)
			continue
		}
		u.Status = StatusPtr(node.Status)
		if u.Exam != nil {
			if node.Exam != nil {
				u.Exam.Status = StatusPtr(node.Exam.Status)
				u.Exam.Result = node.Exam.Result
				u.Exam.PreviousResults = node.Exam.PreviousResults
			} else {
				u.Exam.Status = StatusPtr(NotStarted)
				u.Exam.Result = nil
				u.Exam.PreviousResults = []ExamResult{}
			}
		}
		overlayUnits(u.SubUnits, node.SubUnits)
	}
}
