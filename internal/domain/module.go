package domain

// ModuleStatus is the lock state of a curriculum module.
type ModuleStatus string

// PassPercentage is the minimum quiz result that completes a module and
// unlocks the one after it.
const PassPercentage = 60

// Possible module statuses.
const (
	ModuleLocked    ModuleStatus = "locked"
	ModuleActive    ModuleStatus = "active"
	ModuleCompleted ModuleStatus = "completed"
)

// Module is one unit of a syllabus. Score is the last recorded quiz
// percentage and is nil until the module has been completed.
type Module struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Status      ModuleStatus `json:"status" yaml:"-"`
	Score       *int         `json:"score,omitempty" yaml:"-"`
	Topic       string       `json:"topic" yaml:"topic"`
}

// Clone returns a copy of the module that does not share its score pointer.
func (m Module) Clone() Module {
	if m.Score != nil {
		score := *m.Score
		m.Score = &score
	}
	return m
}
