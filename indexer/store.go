package indexer

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func pageWindow(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 0 {
		page = 0
	}
	return page * pageSize, pageSize
}

type ProposalFilter struct {
	Author string
	Status uint64
}

func (c *ChainIndexer) getProposals(filter ProposalFilter, page int, pageSize int) ([]Proposal, uint64, error) {
	q := c.db.Model(&Proposal{})
	if filter.Author != "" {
		q = q.Where("author = ?", filter.Author)
	}
	if filter.Status != 0 {
		q = q.Where("status = ?", filter.Status)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	proposals := make([]Proposal, 0)
	err := q.Order("proposal_id desc").Offset(offset).Limit(limit).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("proposal_id = ?", proposalId).First(&proposal).Error
	return proposal, err
}

func (c *ChainIndexer) getMembers(page int, pageSize int) ([]Member, uint64, error) {
	var total uint64
	if err := c.db.Model(&Member{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	members := make([]Member, 0)
	err := c.db.Order("member_index asc").Offset(offset).Limit(limit).Find(&members).Error
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (c *ChainIndexer) getVotes(proposal *uint64, voter string, page int, pageSize int) ([]ProposalVote, uint64, error) {
	q := c.db.Model(&ProposalVote{})
	if proposal != nil {
		q = q.Where("proposal = ?", *proposal)
	}
	if voter != "" {
		q = q.Where("voter = ?", voter)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageWindow(page, pageSize)
	votes := make([]ProposalVote, 0)
	err := q.Order("id asc").Offset(offset).Limit(limit).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getTransfers(proposal uint64) ([]Transfer, error) {
	transfers := make([]Transfer, 0)
	err := c.db.Where("proposal = ?", proposal).Order("id asc").Find(&transfers).Error
	return transfers, err
}
