// Package marker embeds and reads tagged state markers in free text such as a
// pull request body. A marker is a single-line HTML comment, so it does not
// show up in rendered Markdown:
//
//	<!-- bump-advisor:analyzed -->
//	<!-- bump-advisor:target-package {"from":"4.17.20","package":"lodash","to":"4.17.21"} -->
//
// Markers are append-only. A document may hold any number of markers with the
// same tag; nothing in this package rewrites or removes one.
package marker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const namespace = "bump-advisor"

type Tag string

const (
	Analyzed         Tag = "analyzed"
	TargetPackage    Tag = "target-package"
	AnalyzedPackage  Tag = "analyzed-package"
	SecurityResolved Tag = "security-resolved"
)

var knownTags = map[Tag]bool{
	Analyzed:         true,
	TargetPackage:    true,
	AnalyzedPackage:  true,
	SecurityResolved: true,
}

func (t Tag) Known() bool { return knownTags[t] }

// Payload is the decoded JSON object carried by a marker.
type Payload map[string]any

// String returns the value for key if it is a string.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Decode converts p into v by round-tripping through JSON.
func Decode(p Payload, v any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

var markerRe = regexp.MustCompile(`<!--[ \t]*` + namespace + `:([a-z0-9-]+)(?:[ \t]+(.*?))?[ \t]*-->`)

// Create renders a marker. A nil payload produces a bare marker. json.Marshal
// escapes '<', '>' and '&', so a payload can never terminate the comment early.
func Create(tag Tag, payload any) (string, error) {
	if payload == nil {
		return fmt.Sprintf("<!-- %s:%s -->", namespace, tag), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s marker payload: %w", tag, err)
	}
	if bytes.ContainsAny(data, "\n\r") {
		return "", fmt.Errorf("%s marker payload is not single-line", tag)
	}
	return fmt.Sprintf("<!-- %s:%s %s -->", namespace, tag, data), nil
}

// MustCreate is Create for payloads that are known to marshal.
func MustCreate(tag Tag, payload any) string {
	s, err := Create(tag, payload)
	if err != nil {
		panic(err)
	}
	return s
}

// ExistsIn reports whether doc holds at least one marker with tag, bare or not.
func ExistsIn(doc string, tag Tag) bool {
	for _, m := range markerRe.FindAllStringSubmatch(doc, -1) {
		if Tag(m[1]) == tag {
			return true
		}
	}
	return false
}

// Extract returns the payload of the first payload-bearing marker with tag.
// Bare markers are skipped. If that first payload does not parse, the result
// is not found; later occurrences are not consulted.
func Extract(doc string, tag Tag) (Payload, bool) {
	raws := occurrences(doc, tag)
	if len(raws) == 0 {
		return nil, false
	}
	return parsePayload(tag, raws[0])
}

// ExtractAll returns every parseable payload with tag in document order.
// Bare markers carry no payload and are not included; use ExistsIn to detect
// them. Malformed payloads are logged and skipped individually.
func ExtractAll(doc string, tag Tag) []Payload {
	var out []Payload
	for _, raw := range occurrences(doc, tag) {
		if p, ok := parsePayload(tag, raw); ok {
			out = append(out, p)
		}
	}
	return out
}

// Strip removes every marker from doc, whatever its tag.
func Strip(doc string) string {
	return markerRe.ReplaceAllString(doc, "")
}

// occurrences returns the raw payload text of every payload-bearing marker
// with tag.
func occurrences(doc string, tag Tag) []string {
	var raws []string
	for _, m := range markerRe.FindAllStringSubmatch(doc, -1) {
		if Tag(m[1]) != tag {
			continue
		}
		if raw := strings.TrimSpace(m[2]); raw != "" {
			raws = append(raws, raw)
		}
	}
	return raws
}

func parsePayload(tag Tag, raw string) (Payload, bool) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("skipping malformed marker payload", "tag", string(tag), "payload", raw, "error", err)
		return nil, false
	}
	if p == nil {
		// "null" decodes to a nil map; it still counts as an occurrence.
		p = Payload{}
	}
	return p, true
}
