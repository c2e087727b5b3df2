package http

// ReadingRequest is the JSON body of POST /v1/readings/{variant}.
type ReadingRequest struct {
	Question    string   `json:"question"`
	Context     *string  `json:"context"`
	MainCards   []string `json:"mainCards"`
	BranchCards []string `json:"branchCards"`
}

// ErrorResponse is returned for client errors and, under the propagate policy,
// for pipeline failures. Preview is bounded and never the full model reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	Path    string `json:"path,omitempty"`
	Preview string `json:"preview,omitempty"`
}
