package engine

import (
	"sort"
	"strings"

	"github.com/orvan-io/dirsync/internal/model"
)

// Query describes a filtered, ordered view of the cached population.
// RequiredGroups narrows the candidate set to the union of those groups'
// members; nil means the whole population. Companies is the visibility
// scope: a user passes when its company or any of that company's
// ancestors is in the set. Criteria is a case-insensitive substring
// matched against first name, last name, login and primary mail.
type Query struct {
	RequiredGroups []string
	Companies      []string
	Criteria       string
	OrderBy        string
	Descending     bool
	Page           PageRequest
}

// PageRequest selects a zero-based page of a result set.
type PageRequest struct {
	Number int
	Size   int
}

// Page is one page of an ordered result set, with the total count of
// matches before pagination.
type Page struct {
	Users []*model.User `json:"users"`
	Total int           `json:"total"`
}

// FindAllFiltered evaluates a query over the cache: candidate set, scope
// and criteria filters, total ordering, then pagination. Everything is
// in-memory; the population is bounded by the directory scan, not by the
// query.
func (e *Engine) FindAllFiltered(q Query) Page {
	candidates := e.candidates(q.RequiredGroups)

	scope := make(map[string]struct{}, len(q.Companies))
	for _, id := range q.Companies {
		scope[model.Normalize(id)] = struct{}{}
	}
	criteria := model.Normalize(q.Criteria)

	matched := make([]*model.User, 0, len(candidates))
	for _, user := range candidates {
		if !e.inCompanyScope(user, scope) {
			continue
		}
		if criteria != "" && !matchesCriteria(user, criteria) {
			continue
		}
		matched = append(matched, user)
	}

	cmp := e.comparator(q.OrderBy)
	if q.Descending {
		cmp = cmp.Reversed()
	}
	cmp = cmp.ThenByID()
	sort.SliceStable(matched, func(i, j int) bool {
		return cmp(matched[i], matched[j]) < 0
	})

	return paginate(matched, q.Page)
}

// candidates resolves the initial set: the union of the required groups'
// member sets, or the full cached population when no groups are
// required. Member ids without a cached user are skipped here; the
// reconciler already reported them.
func (e *Engine) candidates(requiredGroups []string) []*model.User {
	if requiredGroups == nil {
		users := e.cache.Users()
		out := make([]*model.User, 0, len(users))
		for _, user := range users {
			out = append(out, user)
		}
		return out
	}

	seen := make(map[string]struct{})
	var out []*model.User
	for _, id := range requiredGroups {
		group := e.cache.Group(model.Normalize(id))
		if group == nil {
			continue
		}
		for _, member := range group.Members {
			if _, dup := seen[member]; dup {
				continue
			}
			seen[member] = struct{}{}
			if user := e.cache.User(member); user != nil {
				out = append(out, user)
			}
		}
	}
	return out
}

// inCompanyScope checks the user's company and its ancestor chain
// against the requested scope. An empty scope admits nobody; callers
// always pass the principal's visible companies.
func (e *Engine) inCompanyScope(user *model.User, scope map[string]struct{}) bool {
	if len(scope) == 0 {
		return false
	}
	company := e.cache.Company(user.Company)
	if company == nil {
		_, ok := scope[user.Company]
		return ok
	}
	return company.InScope(scope)
}

func matchesCriteria(user *model.User, criteria string) bool {
	if strings.Contains(model.Normalize(user.FirstName), criteria) ||
		strings.Contains(model.Normalize(user.LastName), criteria) ||
		strings.Contains(user.ID, criteria) {
		return true
	}
	return len(user.Mails) > 0 && strings.Contains(model.Normalize(user.Mails[0]), criteria)
}

// comparator looks up the registry; unknown sort fields order by id.
func (e *Engine) comparator(orderBy string) model.UserComparator {
	if cmp, ok := e.comparators[orderBy]; ok {
		return cmp
	}
	return model.ByID
}

func paginate(users []*model.User, page PageRequest) Page {
	total := len(users)
	if page.Size <= 0 {
		return Page{Users: users, Total: total}
	}
	start := page.Number * page.Size
	if start < 0 || start >= total {
		return Page{Users: []*model.User{}, Total: total}
	}
	end := min(start+page.Size, total)
	return Page{Users: users[start:end], Total: total}
}
