// Package engine implements the directory identity synchronization
// engine: attribute mapping between directory entries and the normalized
// user model, membership reconciliation, the account lifecycle state
// machine, ordered and filtered views of the cached population, and
// credential operations delegated to the directory.
//
// Every mutating operation writes to the directory first and only then
// touches the cache, so the cache never reflects a state the directory
// write did not also reach. The engine performs no internal locking:
// callers needing strict consistency serialize writes per identifier
// themselves.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/orvan-io/dirsync/internal/cache"
	"github.com/orvan-io/dirsync/internal/config"
	"github.com/orvan-io/dirsync/internal/directory"
	"github.com/orvan-io/dirsync/internal/metrics"
	"github.com/orvan-io/dirsync/internal/model"
)

const (
	objectClassAttribute = "objectClass"
	credentialAttribute  = "userPassword"
)

// ErrNotFound reports that a referenced user, group or company is not in
// the cached population.
var ErrNotFound = errors.New("not found")

// Engine is the synchronization engine. It is synchronous and holds no
// background tasks; each call performs at most one directory round-trip
// chain plus the write-through cache update.
type Engine struct {
	store   directory.Store
	cache   *cache.Store
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	// Affiliation pattern, compiled once. The anchored form emulates
	// full-string matching; rawPattern keeps the configured text for the
	// constant-company fallback.
	companyPattern *regexp.Regexp
	rawPattern     string

	comparators map[string]model.UserComparator

	now func() time.Time
}

// New wires an engine over a directory store and a cache store. The
// affiliation pattern is compiled here; a bad pattern fails construction
// rather than the first lookup.
func New(store directory.Store, cacheStore *cache.Store, cfg *config.Config, log *slog.Logger, m *metrics.Metrics) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}
	if cacheStore == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	pattern, err := regexp.Compile("^(?:" + cfg.Companies.Pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("affiliation pattern: %w", err)
	}
	return &Engine{
		store:          store,
		cache:          cacheStore,
		cfg:            cfg,
		log:            log,
		metrics:        m,
		companyPattern: pattern,
		rawPattern:     cfg.Companies.Pattern,
		comparators: map[string]model.UserComparator{
			"company":   model.ByCompany,
			"id":        model.ByID,
			"firstName": model.ByFirstName,
			"lastName":  model.ByLastName,
			"mail":      model.ByMail,
		},
		now: time.Now,
	}, nil
}

// Resync repopulates the cache from a full directory scan: companies and
// groups first, then users reconciled against the groups. The swap is
// atomic from the cache's point of view.
func (e *Engine) Resync(ctx context.Context) (err error) {
	start := e.now()
	defer func() { e.metrics.Observe("resync", start, err) }()

	companies, err := e.FindAllCompaniesNoCache(ctx)
	if err != nil {
		return err
	}
	groups, err := e.FindAllGroupsNoCache(ctx)
	if err != nil {
		return err
	}
	users, err := e.FindAllNoCache(ctx, groups)
	if err != nil {
		return err
	}
	e.cache.Refresh(users, groups, companies)
	e.log.Info("cache repopulated",
		slog.Int("users", len(users)),
		slog.Int("groups", len(groups)),
		slog.Int("companies", len(companies)))
	return nil
}

// buildDN derives a user's DN from its normalized login and the owning
// organization's DN.
func (e *Engine) buildDN(login, companyDN string) string {
	return directory.JoinDN(e.cfg.People.UIDAttribute, model.Normalize(login), companyDN)
}

// company resolves a company id against the cache.
func (e *Engine) company(id string) (*model.Company, error) {
	if c := e.cache.Company(model.Normalize(id)); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("company %q: %w", id, ErrNotFound)
}

// group resolves a group id against the cache.
func (e *Engine) group(id string) (*model.Group, error) {
	if g := e.cache.Group(model.Normalize(id)); g != nil {
		return g, nil
	}
	return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
}

// QuarantineCompany returns the designated subtree holding isolated
// accounts. The company is synthesized when the quarantine base sits
// outside the scanned organizational subtree.
func (e *Engine) QuarantineCompany() *model.Company {
	id := model.Normalize(directory.RDNValue(e.cfg.Companies.QuarantineBaseDN))
	if c := e.cache.Company(id); c != nil {
		return c
	}
	return &model.Company{
		ID:   id,
		DN:   model.Normalize(e.cfg.Companies.QuarantineBaseDN),
		Tree: []string{id},
	}
}
