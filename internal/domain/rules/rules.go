// Package rules provides the domain representation of leak detection rules,
// the patterns the detector compiles and applies to discovered assets.
package rules

import (
	"crypto/md5"
	"encoding/hex"
)

// Rule is a single leak detection pattern together with its classification
// metadata. Category groups rules into secret families (AWS, GCP, JWT,
// generic and so on) used by validation and risk scoring.
type Rule struct {
	RuleID   string
	Label    string
	Pattern  string
	Severity string
	Category string
	Source   string
	Enabled  bool
}

// GenerateHash generates a deterministic MD5 hash of the essential rule content.
func (r Rule) GenerateHash() string {
	h := md5.New()
	h.Write([]byte(r.RuleID))
	h.Write([]byte{0})
	h.Write([]byte(r.Pattern))
	h.Write([]byte{0})
	h.Write([]byte(r.Severity))
	h.Write([]byte{0})
	h.Write([]byte(r.Category))
	return hex.EncodeToString(h.Sum(nil))
}

// RuleMessage represents a single rule and its content hash for transmission.
type RuleMessage struct {
	Rule
	Hash string
}
