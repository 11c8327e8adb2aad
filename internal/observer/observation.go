package observer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nibzard/agileflow-go/internal/ledger"
)

// Observation types.
const (
	TypeAvailability  = "availability"
	TypePerformance   = "performance"
	TypeCodeQuality   = "code-quality"
	TypeTesting       = "testing"
	TypeStability     = "stability"
	TypeProcess       = "process"
	TypeQuality       = "quality"
	TypeDocumentation = "documentation"
)

// Observation is a problem found by a check.
type Observation struct {
	Type        string          `json:"type"`
	Priority    ledger.Priority `json:"priority"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
}

// Key identifies an observation for de-duplication.
func (o Observation) Key() string {
	return o.Type + ":" + o.Title
}

// Requirement renders the observation as requirement pool text.
func (o Observation) Requirement() string {
	return fmt.Sprintf("[%s] %s\n\n%s\n\nPriority: %s",
		strings.ToUpper(o.Type), o.Title, o.Description, o.Priority)
}

func sortByPriority(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return ledger.PriorityRank(obs[i].Priority) < ledger.PriorityRank(obs[j].Priority)
	})
}
