package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/model"
)

// FindAllCompaniesNoCache scans the organizational subtree and computes
// each company's containment chain. The quarantine subtree is part of
// the result even when it lives outside the scanned base, so isolated
// accounts always resolve to a known company.
func (e *Engine) FindAllCompaniesNoCache(ctx context.Context) (map[string]*model.Company, error) {
	filter := directory.Filter{}.Eq(objectClassAttribute, e.cfg.Companies.ObjectClass)
	entries, err := e.store.Search(ctx, e.cfg.Companies.BaseDN, filter)
	if err != nil {
		return nil, err
	}

	companies := make(map[string]*model.Company, len(entries)+1)
	for i := range entries {
		dn := model.Normalize(entries[i].DN)
		id := model.Normalize(directory.RDNValue(dn))
		companies[id] = &model.Company{ID: id, DN: dn}
	}

	quarantineID := model.Normalize(directory.RDNValue(e.cfg.Companies.QuarantineBaseDN))
	if _, ok := companies[quarantineID]; !ok {
		companies[quarantineID] = &model.Company{
			ID: quarantineID,
			DN: model.Normalize(e.cfg.Companies.QuarantineBaseDN),
		}
	}

	buildCompanyTrees(companies)
	return companies, nil
}

// FindAllCompanies returns the cached company population keyed by id.
func (e *Engine) FindAllCompanies() map[string]*model.Company {
	return e.cache.Companies()
}

// buildCompanyTrees fills each company's Tree with its own id followed
// by the ids of every enclosing company, nearest ancestor first.
// Containment is DN suffix nesting; the deterministic order comes from
// sorting ancestors by descending DN length, a strict ancestor chain is
// strictly ordered by it.
func buildCompanyTrees(companies map[string]*model.Company) {
	for _, company := range companies {
		ancestors := make([]*model.Company, 0, 2)
		for _, other := range companies {
			if other != company && strings.HasSuffix(company.DN, ","+other.DN) {
				ancestors = append(ancestors, other)
			}
		}
		sort.Slice(ancestors, func(i, j int) bool {
			return len(ancestors[i].DN) > len(ancestors[j].DN)
		})

		tree := make([]string, 0, len(ancestors)+1)
		tree = append(tree, company.ID)
		for _, ancestor := range ancestors {
			tree = append(tree, ancestor.ID)
		}
		company.Tree = tree
	}
}
