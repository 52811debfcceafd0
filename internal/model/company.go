package model

// Company is an organizational unit grouping users by affiliation.
// Tree is the ancestor chain derived from DN nesting: the company itself
// first, then every company whose DN is a suffix of this one's, up to the
// root. The query engine uses it for organizational-scope filtering.
type Company struct {
	ID   string   `json:"id"`
	DN   string   `json:"dn"`
	Tree []string `json:"tree,omitempty"`
}

// InScope reports whether this company, or any of its ancestors, is in
// the given set of company identifiers.
func (c *Company) InScope(companies map[string]struct{}) bool {
	for _, id := range c.Tree {
		if _, ok := companies[id]; ok {
			return true
		}
	}
	return false
}
