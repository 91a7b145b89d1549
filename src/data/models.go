package data

import "time"

// Member is an admin-curated member record. On-chain membership remains
// authoritative; this holds display metadata and roles.
type Member struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Address     string    `gorm:"size:42;uniqueIndex;not null" json:"address"`
	DisplayName string    `gorm:"size:128" json:"displayName"`
	Tier        string    `gorm:"size:16;not null;default:Basic" json:"tier"`
	Role        string    `gorm:"size:16;not null;default:member" json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TreasuryTransfer tracks a treasury payout from request to execution.
type TreasuryTransfer struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Recipient  string    `gorm:"size:42;index;not null" json:"recipient"`
	Amount     string    `gorm:"size:80;not null" json:"amount"`
	Asset      string    `gorm:"size:16;not null;default:ETH" json:"asset"`
	Purpose    string    `gorm:"type:text" json:"purpose"`
	Status     string    `gorm:"size:16;not null;default:pending" json:"status"`
	ProposalID string    `gorm:"size:80;index" json:"proposalId,omitempty"`
	TxHash     string    `gorm:"size:66" json:"txHash,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ProposalDraft is an off-chain proposal before it is submitted.
type ProposalDraft struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Author      string    `gorm:"size:42;index;not null" json:"author"`
	Kind        string    `gorm:"size:16;not null" json:"type"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Category    string    `gorm:"size:32;not null" json:"category"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Status      string    `gorm:"size:16;not null;default:draft" json:"status"`
	ProposalID  string    `gorm:"size:80;index" json:"proposalId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Setting is a name/value override for configuration.
type Setting struct {
	ID     uint   `gorm:"primaryKey"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Value  string `gorm:"type:text;not null"`
	Active uint8  `gorm:"not null;default:1"`
}

var (
	MemberRoles      = []string{"member", "admin"}
	TransferStatuses = []string{"pending", "approved", "executed", "rejected"}
	DraftStatuses    = []string{"draft", "submitted", "archived"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
