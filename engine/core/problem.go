package core

import (
	"maps"
	"net/http"
)

// Problem is an RFC 7807 error. Code is the stable machine-readable error code
// clients switch on; Extras are request context fields such as documentId.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Code     string
	Extras   map[string]any
}

// NewProblem builds a problem titled after its status.
func NewProblem(status int, code, detail string) *Problem {
	return &Problem{Status: status, Title: http.StatusText(status), Code: code, Detail: detail}
}

// WithExtras attaches context fields and returns p.
func (p *Problem) WithExtras(extras map[string]any) *Problem {
	if len(extras) > 0 {
		if p.Extras == nil {
			p.Extras = make(map[string]any, len(extras))
		}
		maps.Copy(p.Extras, extras)
	}
	return p
}

// Normalize fills status, title and type. A nil problem becomes a bare 500.
func (p *Problem) Normalize() *Problem {
	if p == nil {
		p = &Problem{}
	}
	if p.Status == 0 {
		p.Status = http.StatusInternalServerError
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if p.Type == "" {
		p.Type = "about:blank"
	}
	return p
}

// Message is the human readable summary: the detail, else the title.
func (p *Problem) Message() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// envelopeKeys are owned by the problem itself; extras never override them.
var envelopeKeys = map[string]struct{}{
	"success": {}, "message": {}, "status": {}, "error": {},
	"details": {}, "code": {}, "type": {}, "instance": {},
}

// Body renders the JSON envelope: success=false, message, status and error
// first, then the optional RFC 7807 members, then extras.
func (p *Problem) Body() map[string]any {
	body := make(map[string]any, 8+len(p.Extras))
	for k, v := range p.Extras {
		if _, reserved := envelopeKeys[k]; !reserved {
			body[k] = v
		}
	}
	body["success"] = false
	body["message"] = p.Message()
	body["status"] = p.Status
	body["error"] = p.Title
	optional := map[string]string{"details": p.Detail, "code": p.Code, "type": p.Type, "instance": p.Instance}
	for k, v := range optional {
		if v != "" {
			body[k] = v
		}
	}
	return body
}
