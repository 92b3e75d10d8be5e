package context

// Params is the subset of an inbound request the router enriches before
// dispatch (spec section 4.6: "handlers receive projectId/sessionId/
// agentId even when the client omits them").
type Params struct {
	ProjectID string
	SessionID string
	AgentID   string
}

// EnrichParams fills any empty field in p from cwd's detection, leaving
// caller-supplied values untouched.
func (d *Detector) EnrichParams(cwd string, p Params) Params {
	det := d.Detect(cwd)
	if p.ProjectID == "" {
		p.ProjectID = det.Project.Value
	}
	if p.SessionID == "" {
		p.SessionID = det.Session.Value
	}
	if p.AgentID == "" {
		p.AgentID = det.AgentID.Value
	}
	return p
}
