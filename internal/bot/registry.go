package bot

import "strings"

type route struct {
	substrings []string
	handler    Handler
}

// Registry routes payload tokens to handlers by substring containment.
// Routes are tried in registration order; the first match wins.
type Registry struct {
	routes []route
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds h for tokens containing any of substrings.
func (r *Registry) Register(h Handler, substrings ...string) {
	r.routes = append(r.routes, route{substrings: substrings, handler: h})
}

// Match returns the handler for token, or nil.
func (r *Registry) Match(token string) Handler {
	for _, rt := range r.routes {
		for _, s := range rt.substrings {
			if s != "" && strings.Contains(token, s) {
				return rt.handler
			}
		}
	}
	return nil
}

// Routing substrings in priority order.
var (
	CurationSubstrings = []string{"CURATION", "COUPON"}
	CareSubstrings     = []string{"CARE"}
	OrderSubstrings    = []string{"ORDER"}
	SurveySubstrings   = []string{"CSAT"}
)

// NewTopicRegistry registers the four topic handlers in routing priority order.
func NewTopicRegistry(curation, care, order, survey Handler) *Registry {
	r := NewRegistry()
	r.Register(curation, CurationSubstrings...)
	r.Register(care, CareSubstrings...)
	r.Register(order, OrderSubstrings...)
	r.Register(survey, SurveySubstrings...)
	return r
}
