// Package classify decides whether raw feed text describes an actual
// ransomware incident and maps it to a known threat actor and event type.
package classify

import "strings"

// EventType labels what kind of incident a record describes.
type EventType string

const (
	EventTypeLeak    EventType = "leak"
	EventTypeMention EventType = "mention"
)

// ActorUnknown is the catch-all canonical name when no alias matches.
const ActorUnknown = "Unknown"

// attackKeywords is the relevance vocabulary. Matching is substring-based and
// each keyword counts at most once no matter how often it occurs, so
// "attacked" containing "attack" still contributes a single signal.
var attackKeywords = []string{
	"ransomware",
	"breach",
	"leak",
	"encrypt",
	"exfiltrat",
	"extortion",
	"stolen data",
	"rescate",
	"filtración",
	"ciberataque",
	"secuestro de datos",
}

// leakKeywords flag leak-type events; anything else is a mention.
var leakKeywords = []string{"leak", "dump", "exfiltrat"}

// aliasRule maps a free-text alias to a canonical actor name.
type aliasRule struct {
	Alias     string
	Canonical string
}

// aliasTable is the ordered alias resolution table. The first alias found in
// the text wins, so order is part of the contract: group-specific handles come
// before spellings that could collide with them. Tests pin this order.
var aliasTable = []aliasRule{
	{"lockbit", "LockBit"},
	{"qilin", "Qilin"},
	{"alphv", "BlackCat"},
	{"blackcat", "BlackCat"},
	{"cl0p", "Clop"},
	{"clop", "Clop"},
	{"black basta", "Black Basta"},
	{"blackbasta", "Black Basta"},
	{"ransomhub", "RansomHub"},
	{"akira", "Akira"},
	{"rhysida", "Rhysida"},
	{"medusa", "Medusa"},
	{"bianlian", "BianLian"},
	{"vice society", "Vice Society"},
	{"hunters international", "Hunters International"},
	{"8base", "8Base"},
}

// Relevant reports whether text describes an actual incident. A single
// generic keyword ("ransomware" in an unrelated op-ed) is not enough; two
// distinct signals must co-occur.
func Relevant(text string) bool {
	t := strings.ToLower(text)
	distinct := 0
	for _, kw := range attackKeywords {
		if strings.Contains(t, kw) {
			distinct++
			if distinct >= 2 {
				return true
			}
		}
	}
	return false
}

// DetectActor resolves text to a canonical threat-actor name using
// case-insensitive substring search against the alias table. No match
// yields ActorUnknown.
func DetectActor(text string) string {
	t := strings.ToLower(text)
	for _, rule := range aliasTable {
		if strings.Contains(t, rule.Alias) {
			return rule.Canonical
		}
	}
	return ActorUnknown
}

// MatchedAliases returns the distinct aliases present in text, in table
// order. Used to build the indicator snippet of a record.
func MatchedAliases(text string) []string {
	t := strings.ToLower(text)
	var matched []string
	for _, rule := range aliasTable {
		if strings.Contains(t, rule.Alias) {
			matched = append(matched, rule.Alias)
		}
	}
	return matched
}

// DetectType returns EventTypeLeak when the text carries leak language,
// EventTypeMention otherwise.
func DetectType(text string) EventType {
	t := strings.ToLower(text)
	for _, kw := range leakKeywords {
		if strings.Contains(t, kw) {
			return EventTypeLeak
		}
	}
	return EventTypeMention
}
