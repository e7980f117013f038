package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type Member struct {
	Address  string `gorm:"primary_key" json:"address"`
	Index    uint64 `gorm:"column:member_index" json:"index"`
	Proposal uint64 `json:"proposal"`
	Genesis  bool   `json:"genesis"`
	Height   uint64 `json:"height"`
}

// Proposal mirrors the on-chain proposal. Chain ids start at zero, so the
// chain id lives in ProposalId next to the sqlite row id.
type Proposal struct {
	Id           uint64 `gorm:"primary_key" json:"-"`
	ProposalId   uint64 `gorm:"unique_index" json:"id"`
	Author       string `gorm:"index" json:"author"`
	Kind         uint64 `json:"kind"`
	Status       uint64 `gorm:"index" json:"status"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Amount       uint64 `json:"amount"`
	Approves     uint64 `json:"approves"`
	Rejects      uint64 `json:"rejects"`
	Epoch        uint64 `json:"epoch"`
	CreatedAt    uint64 `json:"created_at"`
	UpdatedAt    uint64 `json:"updated_at"`
	NewHeight    uint64 `json:"new_height"`
	SettleHeight uint64 `json:"settle_height"`
}

type ProposalVote struct {
	Id       uint64 `gorm:"primary_key" json:"-"`
	Proposal uint64 `gorm:"index" json:"proposal"`
	Voter    string `gorm:"index" json:"voter"`
	Approve  bool   `json:"approve"`
	Epoch    uint64 `json:"epoch"`
	Decision string `json:"decision"`
	Height   uint64 `json:"height"`
}

type Transfer struct {
	Id       uint64 `gorm:"primary_key" json:"-"`
	Proposal uint64 `json:"proposal"`
	To       string `gorm:"column:recipient" json:"to"`
	Amount   uint64 `json:"amount"`
	Height   uint64 `json:"height"`
}
