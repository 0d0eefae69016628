package exchange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The SSE static host sits behind an anti-bot layer that answers blocked
// requests with a small JS challenge page instead of the asset. The page
// computes an acw_sc__v2 cookie from an embedded hex token; replaying the
// request with that cookie passes the check. The derivation below mirrors
// the challenge script: permute the token's characters, then XOR the hex
// byte pairs against a fixed mask.

// wafChallengeSignature identifies a challenge page. Callers must check
// IsWAFChallenge before invoking the solver.
const wafChallengeSignature = "var arg1='"

// WAFCookieName is the cookie the solved value must be sent under.
const WAFCookieName = "acw_sc__v2"

var wafTokenRe = regexp.MustCompile(`var arg1='([0-9A-F]+)';`)

// wafPosList is the permutation table from the challenge script.
var wafPosList = [40]int{
	0xf, 0x23, 0x1d, 0x18, 0x21, 0x10, 0x1, 0x26, 0xa, 0x9,
	0x13, 0x1f, 0x28, 0x1b, 0x16, 0x17, 0x19, 0xd, 0x6, 0xb,
	0x27, 0x12, 0x14, 0x8, 0xe, 0x15, 0x20, 0x1a, 0x2, 0x1e,
	0x7, 0x4, 0x11, 0x5, 0x3, 0x1c, 0x22, 0x25, 0xc, 0x24,
}

// wafMask is the XOR mask from the challenge script.
const wafMask = "3000176000856006061501533003690027800375"

// IsWAFChallenge reports whether body looks like the challenge page.
func IsWAFChallenge(body string) bool {
	return strings.Contains(body, wafChallengeSignature)
}

// SolveWAFChallenge derives the acw_sc__v2 cookie value from a challenge
// page. Returns an empty string when the token is missing; callers treat
// empty as "could not bypass" and proceed without the cookie.
func SolveWAFChallenge(body string) string {
	m := wafTokenRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	arg1 := m[1]

	// Permutation: character i of the token lands at the slot j where
	// posList[j] == i+1.
	var reordered [40]byte
	for i := 0; i < len(arg1) && i < 40; i++ {
		for j, pos := range wafPosList {
			if pos == i+1 {
				reordered[j] = arg1[i]
				break
			}
		}
	}

	// XOR the reordered hex byte pairs against the mask.
	var out strings.Builder
	for i := 0; i+1 < len(reordered) && i+1 < len(wafMask); i += 2 {
		tokenByte, err := strconv.ParseUint(string(reordered[i:i+2]), 16, 8)
		if err != nil {
			return ""
		}
		maskByte, err := strconv.ParseUint(wafMask[i:i+2], 16, 8)
		if err != nil {
			return ""
		}
		out.WriteString(fmt.Sprintf("%02x", uint8(tokenByte)^uint8(maskByte)))
	}

	return out.String()
}
