package storebun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-rights/rights"
	"github.com/uptrace/bun"
)

// ContractStore persists the rights catalog in a Bun-backed database.
type ContractStore struct {
	DB *bun.DB
}

// NewContractStore creates a Bun-backed contract store.
func NewContractStore(db *bun.DB) *ContractStore {
	return &ContractStore{DB: db}
}

// SaveContract inserts or replaces a contract.
func (s *ContractStore) SaveContract(ctx context.Context, contract rights.Contract) error {
	if s == nil || s.DB == nil {
		return rights.NewError(rights.KindNotImpl, "contract store database not configured", nil)
	}
	if contract.ID == "" {
		return rights.NewError(rights.KindValidation, "contract ID is required", nil)
	}

	model, err := contractModelFrom(contract)
	if err != nil {
		return err
	}
	_, err = s.DB.NewInsert().Model(&model).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("licensor = EXCLUDED.licensor").
		Set("licensee = EXCLUDED.licensee").
		Set("filename = EXCLUDED.filename").
		Set("source_type = EXCLUDED.source_type").
		Set("signed_at = EXCLUDED.signed_at").
		Set("grants = EXCLUDED.grants").
		Set("uploaded_by = EXCLUDED.uploaded_by").
		Set("scope_tenant_id = EXCLUDED.scope_tenant_id").
		Set("scope_workspace_id = EXCLUDED.scope_workspace_id").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

// Contract returns a contract by ID.
func (s *ContractStore) Contract(ctx context.Context, id string) (rights.Contract, error) {
	if s == nil || s.DB == nil {
		return rights.Contract{}, rights.NewError(rights.KindNotImpl, "contract store database not configured", nil)
	}
	if id == "" {
		return rights.Contract{}, rights.NewError(rights.KindValidation, "contract ID is required", nil)
	}

	model := new(contractModel)
	err := s.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rights.Contract{}, rights.NewError(rights.KindNotFound, fmt.Sprintf("contract %q not found", id), nil)
		}
		return rights.Contract{}, err
	}
	return model.toContract()
}

// Contracts returns contracts matching a filter, newest first. Grant
// level matching happens in memory since grants are stored inline.
func (s *ContractStore) Contracts(ctx context.Context, filter rights.ContractFilter) ([]rights.Contract, error) {
	if s == nil || s.DB == nil {
		return nil, rights.NewError(rights.KindNotImpl, "contract store database not configured", nil)
	}

	models := make([]contractModel, 0)
	query := s.DB.NewSelect().Model(&models)
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	query = query.Order("created_at DESC").Order("id ASC")
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	result := []rights.Contract{}
	for _, model := range models {
		contract, err := model.toContract()
		if err != nil {
			return nil, err
		}
		if !contractMatches(contract, filter) {
			continue
		}
		result = append(result, contract)
	}
	return result, nil
}

// DeleteContract removes a contract and conflicts referencing its grants.
func (s *ContractStore) DeleteContract(ctx context.Context, id string) error {
	if s == nil || s.DB == nil {
		return rights.NewError(rights.KindNotImpl, "contract store database not configured", nil)
	}
	contract, err := s.Contract(ctx, id)
	if err != nil {
		return err
	}

	return s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*contractModel)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		grantIDs := make([]string, 0, len(contract.Grants))
		for _, g := range contract.Grants {
			grantIDs = append(grantIDs, g.ID)
		}
		if len(grantIDs) == 0 {
			return nil
		}
		_, err := tx.NewDelete().Model((*conflictModel)(nil)).
			Where("grant_id IN (?) OR other_id IN (?)", bun.In(grantIDs), bun.In(grantIDs)).
			Exec(ctx)
		return err
	})
}

// Grants returns grants matching a filter across all contracts.
func (s *ContractStore) Grants(ctx context.Context, filter rights.ContractFilter) ([]rights.RightsGrant, error) {
	contracts, err := s.Contracts(ctx, filter)
	if err != nil {
		return nil, err
	}
	grants := []rights.RightsGrant{}
	for _, contract := range contracts {
		for _, g := range contract.Grants {
			if filter.Work != "" && !strings.EqualFold(g.Work, filter.Work) {
				continue
			}
			if filter.Media != "" && g.Media != filter.Media {
				continue
			}
			if filter.Licensee != "" && !strings.EqualFold(g.Licensee, filter.Licensee) {
				continue
			}
			grants = append(grants, g)
		}
	}
	return grants, nil
}

// ReplaceConflicts swaps the stored conflict set.
func (s *ContractStore) ReplaceConflicts(ctx context.Context, conflicts []rights.Conflict) error {
	if s == nil || s.DB == nil {
		return rights.NewError(rights.KindNotImpl, "contract store database not configured", nil)
	}

	return s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*conflictModel)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return err
		}
		if len(conflicts) == 0 {
			return nil
		}
		models := make([]conflictModel, 0, len(conflicts))
		for _, c := range conflicts {
			model, err := conflictModelFrom(c)
			if err != nil {
				return err
			}
			models = append(models, model)
		}
		_, err := tx.NewInsert().Model(&models).Exec(ctx)
		return err
	})
}

// Conflicts returns conflicts matching a filter, ordered by ID.
func (s *ContractStore) Conflicts(ctx context.Context, filter rights.ConflictFilter) ([]rights.Conflict, error) {
	if s == nil || s.DB == nil {
		return nil, rights.NewError(rights.KindNotImpl, "contract store database not configured", nil)
	}

	models := make([]conflictModel, 0)
	query := s.DB.NewSelect().Model(&models)
	if filter.Work != "" {
		query = query.Where("lower(work) = lower(?)", filter.Work)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	query = query.Order("id ASC")
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	result := []rights.Conflict{}
	for _, model := range models {
		conflict, err := model.toConflict()
		if err != nil {
			return nil, err
		}
		result = append(result, conflict)
	}
	return result, nil
}

func contractMatches(contract rights.Contract, filter rights.ContractFilter) bool {
	if filter.Licensee == "" && filter.Work == "" && filter.Media == "" {
		return true
	}
	for _, g := range contract.Grants {
		if filter.Licensee != "" && !strings.EqualFold(g.Licensee, filter.Licensee) {
			continue
		}
		if filter.Work != "" && !strings.EqualFold(g.Work, filter.Work) {
			continue
		}
		if filter.Media != "" && g.Media != filter.Media {
			continue
		}
		return true
	}
	return false
}

type contractModel struct {
	bun.BaseModel `bun:"table:contracts,alias:contracts"`

	ID               string    `bun:",pk"`
	Title            string    `bun:"title"`
	Licensor         string    `bun:"licensor"`
	Licensee         string    `bun:"licensee"`
	Filename         string    `bun:"filename"`
	SourceType       string    `bun:"source_type"`
	SignedAt         time.Time `bun:"signed_at,nullzero"`
	Grants           []byte    `bun:"grants"`
	UploadedBy       []byte    `bun:"uploaded_by"`
	ScopeTenantID    string    `bun:"scope_tenant_id"`
	ScopeWorkspaceID string    `bun:"scope_workspace_id"`
	CreatedAt        time.Time `bun:"created_at"`
}

func contractModelFrom(contract rights.Contract) (contractModel, error) {
	grants, err := json.Marshal(contract.Grants)
	if err != nil {
		return contractModel{}, err
	}
	uploadedBy, err := json.Marshal(contract.UploadedBy)
	if err != nil {
		return contractModel{}, err
	}
	return contractModel{
		ID:               contract.ID,
		Title:            contract.Title,
		Licensor:         contract.Licensor,
		Licensee:         contract.Licensee,
		Filename:         contract.Filename,
		SourceType:       contract.SourceType,
		SignedAt:         contract.SignedAt,
		Grants:           grants,
		UploadedBy:       uploadedBy,
		ScopeTenantID:    contract.Scope.TenantID,
		ScopeWorkspaceID: contract.Scope.WorkspaceID,
		CreatedAt:        contract.CreatedAt,
	}, nil
}

func (m contractModel) toContract() (rights.Contract, error) {
	contract := rights.Contract{
		ID:         m.ID,
		Title:      m.Title,
		Licensor:   m.Licensor,
		Licensee:   m.Licensee,
		Filename:   m.Filename,
		SourceType: m.SourceType,
		SignedAt:   m.SignedAt,
		Scope: rights.Scope{
			TenantID:    m.ScopeTenantID,
			WorkspaceID: m.ScopeWorkspaceID,
		},
		CreatedAt: m.CreatedAt,
	}
	if len(m.Grants) > 0 {
		if err := json.Unmarshal(m.Grants, &contract.Grants); err != nil {
			return rights.Contract{}, err
		}
	}
	if len(m.UploadedBy) > 0 {
		if err := json.Unmarshal(m.UploadedBy, &contract.UploadedBy); err != nil {
			return rights.Contract{}, err
		}
	}
	return contract, nil
}

type conflictModel struct {
	bun.BaseModel `bun:"table:conflicts,alias:conflicts"`

	ID          string    `bun:",pk"`
	Kind        string    `bun:"kind"`
	Severity    string    `bun:"severity"`
	Work        string    `bun:"work"`
	Media       string    `bun:"media"`
	GrantID     string    `bun:"grant_id"`
	OtherID     string    `bun:"other_id"`
	Territories []byte    `bun:"territories"`
	WindowStart time.Time `bun:"window_start,nullzero"`
	WindowEnd   time.Time `bun:"window_end,nullzero"`
	Detail      string    `bun:"detail"`
	DetectedAt  time.Time `bun:"detected_at,nullzero"`
}

func conflictModelFrom(c rights.Conflict) (conflictModel, error) {
	territories, err := json.Marshal(c.Territories)
	if err != nil {
		return conflictModel{}, err
	}
	return conflictModel{
		ID:          c.ID,
		Kind:        string(c.Kind),
		Severity:    string(c.Severity),
		Work:        c.Work,
		Media:       string(c.Media),
		GrantID:     c.GrantID,
		OtherID:     c.OtherID,
		Territories: territories,
		WindowStart: c.Window.Start,
		WindowEnd:   c.Window.End,
		Detail:      c.Detail,
		DetectedAt:  c.DetectedAt,
	}, nil
}

func (m conflictModel) toConflict() (rights.Conflict, error) {
	conflict := rights.Conflict{
		ID:       m.ID,
		Kind:     rights.ConflictKind(m.Kind),
		Severity: rights.Severity(m.Severity),
		Work:     m.Work,
		Media:    rights.MediaType(m.Media),
		GrantID:  m.GrantID,
		OtherID:  m.OtherID,
		Window: rights.Window{
			Start: m.WindowStart,
			End:   m.WindowEnd,
		},
		Detail:     m.Detail,
		DetectedAt: m.DetectedAt,
	}
	if len(m.Territories) > 0 {
		if err := json.Unmarshal(m.Territories, &conflict.Territories); err != nil {
			return rights.Conflict{}, err
		}
	}
	return conflict, nil
}
