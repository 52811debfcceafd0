package engine

import "github.com/orvan-io/dirsync/internal/model"

// companyFromDN resolves a user's organizational affiliation from its
// DN. The configured pattern is matched in full against the normalized
// DN:
//
//   - match with a capturing group: group 1, normalized, is the company
//   - match without a capturing group: no affiliation (the pattern is a
//     structural filter only)
//   - no match with a capturing group: no affiliation derivable
//   - no match without a capturing group: the pattern text itself is the
//     constant company identifier, for directories where every user
//     belongs to a single implicit company
//
// An empty result means the affiliation is undefined, which is a valid
// engine-level outcome, not an error.
func (e *Engine) companyFromDN(dn string) string {
	match := e.companyPattern.FindStringSubmatch(model.Normalize(dn))
	if match != nil {
		if e.companyPattern.NumSubexp() > 0 {
			return model.Normalize(match[1])
		}
		return ""
	}
	if e.companyPattern.NumSubexp() > 0 {
		return ""
	}
	return model.Normalize(e.rawPattern)
}
