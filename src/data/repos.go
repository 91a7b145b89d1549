package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrInvalid  = errors.New("invalid record")
)

// ListOptions pages through a table newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) apply(q *gorm.DB) *gorm.DB {
	limit := o.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return q.Order("id DESC").Limit(limit).Offset(o.Offset)
}

type MemberRepository interface {
	Create(ctx context.Context, m *Member) error
	List(ctx context.Context, opts ListOptions) ([]Member, error)
	Update(ctx context.Context, id uint64, patch MemberPatch) (*Member, error)
	ByAddress(ctx context.Context, addr string) (*Member, error)
}

type TreasuryRepository interface {
	Create(ctx context.Context, t *TreasuryTransfer) error
	List(ctx context.Context, opts ListOptions) ([]TreasuryTransfer, error)
	Update(ctx context.Context, id uint64, patch TransferPatch) (*TreasuryTransfer, error)
}

type ProposalDraftRepository interface {
	Create(ctx context.Context, d *ProposalDraft) error
	List(ctx context.Context, opts ListOptions) ([]ProposalDraft, error)
	Update(ctx context.Context, id uint64, patch DraftPatch) (*ProposalDraft, error)
}

// Repositories groups the gorm-backed stores.
type Repositories struct {
	Members   MemberRepository
	Treasury  TreasuryRepository
	Proposals ProposalDraftRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Members:   &memberRepo{db: db},
		Treasury:  &treasuryRepo{db: db},
		Proposals: &draftRepo{db: db},
	}
}

func normalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) || !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("%w: bad address %q", ErrInvalid, s)
	}
	return common.HexToAddress(s).Hex(), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// members

type MemberPatch struct {
	DisplayName *string `json:"displayName"`
	Tier        *string `json:"tier"`
	Role        *string `json:"role"`
}

type memberRepo struct{ db *gorm.DB }

func (r *memberRepo) Create(ctx context.Context, m *Member) error {
	addr, err := normalizeAddress(m.Address)
	if err != nil {
		return err
	}
	m.Address = addr
	if m.Role == "" {
		m.Role = "member"
	}
	if !oneOf(m.Role, MemberRoles) {
		return fmt.Errorf("%w: role %q", ErrInvalid, m.Role)
	}
	if m.Tier == "" {
		m.Tier = "Basic"
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memberRepo) List(ctx context.Context, opts ListOptions) ([]Member, error) {
	var out []Member
	err := opts.apply(r.db.WithContext(ctx)).Find(&out).Error
	return out, err
}

func (r *memberRepo) ByAddress(ctx context.Context, addr string) (*Member, error) {
	addr, err := normalizeAddress(addr)
	if err != nil {
		return nil, err
	}
	var m Member
	if err := r.db.WithContext(ctx).Where("address = ?", addr).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *memberRepo) Update(ctx context.Context, id uint64, p MemberPatch) (*Member, error) {
	var m Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	if p.DisplayName != nil {
		m.DisplayName = *p.DisplayName
	}
	if p.Tier != nil {
		m.Tier = *p.Tier
	}
	if p.Role != nil {
		if !oneOf(*p.Role, MemberRoles) {
			return nil, fmt.Errorf("%w: role %q", ErrInvalid, *p.Role)
		}
		m.Role = *p.Role
	}
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// treasury

type TransferPatch struct {
	Status     *string `json:"status"`
	ProposalID *string `json:"proposalId"`
	TxHash     *string `json:"txHash"`
}

type treasuryRepo struct{ db *gorm.DB }

func (r *treasuryRepo) Create(ctx context.Context, t *TreasuryTransfer) error {
	addr, err := normalizeAddress(t.Recipient)
	if err != nil {
		return err
	}
	t.Recipient = addr
	if t.Status == "" {
		t.Status = "pending"
	}
	if !oneOf(t.Status, TransferStatuses) {
		return fmt.Errorf("%w: status %q", ErrInvalid, t.Status)
	}
	if t.Asset == "" {
		t.Asset = "ETH"
	}
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *treasuryRepo) List(ctx context.Context, opts ListOptions) ([]TreasuryTransfer, error) {
	var out []TreasuryTransfer
	err := opts.apply(r.db.WithContext(ctx)).Find(&out).Error
	return out, err
}

func (r *treasuryRepo) Update(ctx context.Context, id uint64, p TransferPatch) (*TreasuryTransfer, error) {
	var t TreasuryTransfer
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	if p.Status != nil {
		if !oneOf(*p.Status, TransferStatuses) {
			return nil, fmt.Errorf("%w: status %q", ErrInvalid, *p.Status)
		}
		t.Status = *p.Status
	}
	if p.ProposalID != nil {
		t.ProposalID = *p.ProposalID
	}
	if p.TxHash != nil {
		t.TxHash = *p.TxHash
	}
	if err := r.db.WithContext(ctx).Save(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// drafts

type DraftPatch struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	ProposalID  *string `json:"proposalId"`
}

type draftRepo struct{ db *gorm.DB }

func (r *draftRepo) Create(ctx context.Context, d *ProposalDraft) error {
	addr, err := normalizeAddress(d.Author)
	if err != nil {
		return err
	}
	d.Author = addr
	if d.Status == "" {
		d.Status = "draft"
	}
	if !oneOf(d.Status, DraftStatuses) {
		return fmt.Errorf("%w: status %q", ErrInvalid, d.Status)
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *draftRepo) List(ctx context.Context, opts ListOptions) ([]ProposalDraft, error) {
	var out []ProposalDraft
	err := opts.apply(r.db.WithContext(ctx)).Find(&out).Error
	return out, err
}

func (r *draftRepo) Update(ctx context.Context, id uint64, p DraftPatch) (*ProposalDraft, error) {
	var d ProposalDraft
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, notFound(err)
	}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Status != nil {
		if !oneOf(*p.Status, DraftStatuses) {
			return nil, fmt.Errorf("%w: status %q", ErrInvalid, *p.Status)
		}
		d.Status = *p.Status
	}
	if p.ProposalID != nil {
		d.ProposalID = *p.ProposalID
	}
	if err := r.db.WithContext(ctx).Save(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}
