package readiness

import (
	"regexp"
	"strings"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

// Policy maps a raw probe result to a readiness status.
type Policy interface {
	Evaluate(raw string) domain.ReadinessStatus
}

// statusCodePolicy is ready when the probe printed the expected HTTP status.
type statusCodePolicy struct {
	want string
}

func (p statusCodePolicy) Evaluate(raw string) domain.ReadinessStatus {
	if strings.TrimSpace(raw) == p.want {
		return domain.StatusReady
	}
	return domain.StatusStarting
}

// psql prints "(0 rows)" / "(1 row)" once the query ran; the singular
// form counts as a result set too.
var resultSetRegexp = regexp.MustCompile(`\brows?\b`)

// resultSetPolicy is ready when the query reported a result set.
type resultSetPolicy struct{}

func (resultSetPolicy) Evaluate(raw string) domain.ReadinessStatus {
	if resultSetRegexp.MatchString(raw) {
		return domain.StatusReady
	}
	return domain.StatusStarting
}

// PolicyFor returns the readiness policy of kind; unknown kinds have none.
func PolicyFor(kind domain.Kind) (Policy, bool) {
	switch {
	case kind == domain.KindDatabase:
		return resultSetPolicy{}, true
	case kind.IsHTTP():
		return statusCodePolicy{want: "200"}, true
	default:
		return nil, false
	}
}
