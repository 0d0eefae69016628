package exchange

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// The exchanges wrap some responses as callbackName(<json>);. A fresh random
// callback token is generated per request so intermediate caches never serve
// a stale envelope.

var jsonpEnvelopeRe = regexp.MustCompile(`(?s)^[^(]*\((.+)\)\s*;?\s*$`)

// newSSECallback builds the callback token the SSE bulletin API expects.
func newSSECallback() string {
	return fmt.Sprintf("jsonpCallback%d", time.Now().UnixMilli())
}

// newBSECallback builds the jQuery-style token the BSE controller expects.
func newBSECallback() string {
	return fmt.Sprintf("jQuery%010d_%d", 1000000000+rand.Int63n(9000000000), time.Now().UnixMilli())
}

// stripJSONP removes the callback envelope and returns the inner JSON.
// Input already lacking an envelope is returned unchanged so plain JSON
// responses parse too.
func stripJSONP(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if body[0] == '{' || body[0] == '[' {
		return body
	}
	if m := jsonpEnvelopeRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return body
}
