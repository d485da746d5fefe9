package estest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// {{(.*?)}} is the template matcher
var templateMatcher = regexp.MustCompile(`{{(.*?)}}`)

type stubRoot map[string][]Stub

// Stub is the request and response information
type Stub struct {
	Request  Request  `yaml:"request" json:"request"`
	Response Response `yaml:"response" json:"response"`
}

// Request is the request information, empty fields match anything
type Request struct {
	Method      string            `yaml:"method" json:"method"`
	Path        string            `yaml:"path" json:"path"`
	Body        string            `yaml:"body" json:"body"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
	QueryParams map[string]string `yaml:"queryParams" json:"queryParams"`
}

// Response is the response information
type Response struct {
	Status  int               `yaml:"status" json:"status"`
	Body    string            `yaml:"body" json:"body"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	// Delay holds the response back, the wait ends early when the client goes away
	Delay time.Duration `yaml:"delay" json:"delay"`
}

// Call is one request received by the server
type Call struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
	User     string
}

func (s Stub) resolve(params map[string]string) Stub {
	s.Request.Path = resolveTemplateValue(s.Request.Path, params)
	s.Request.Body = resolveTemplateValue(s.Request.Body, params)
	s.Request.QueryParams = resolveTemplateValues(s.Request.QueryParams, params)
	s.Request.Headers = resolveTemplateValues(s.Request.Headers, params)
	s.Response.Body = resolveTemplateValue(s.Response.Body, params)
	s.Response.Headers = resolveTemplateValues(s.Response.Headers, params)
	return s
}

func (s Stub) withDefaults() Stub {
	if s.Response.Status == 0 {
		s.Response.Status = 200
	}
	return s
}

func resolveTemplateValues(values map[string]string, params map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	resolved := make(map[string]string, len(values))
	for name, value := range values {
		resolved[name] = resolveTemplateValue(value, params)
	}
	return resolved
}

// resolveTemplateValue resolves the template value
func resolveTemplateValue(str string, params map[string]string) string {
	if templateMatcher.MatchString(str) {
		allGroups := templateMatcher.FindAllStringSubmatch(str, 100)
		for _, group := range allGroups {
			tmpl := fmt.Sprintf("{{%s}}", group[1])
			str = strings.ReplaceAll(str, tmpl, params[strings.TrimSpace(group[1])])
		}
	}
	return str
}
