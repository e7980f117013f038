package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/society/quorum"
	"github.com/calehh/society/types"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var ErrQueryFail = errors.New("abci query fail")

// ChainClient is the part of the node RPC the indexer reads from.
type ChainClient interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error)
	ABCIQuery(ctx context.Context, path string, data bytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

func Dial(url string) (*comethttp.HTTP, error) {
	return comethttp.New(url, "/websocket")
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	Interval      time.Duration
	db            *gorm.DB
	cli           ChainClient
	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, cli ChainClient) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Member{}, &Proposal{}, &ProposalVote{}, &Transfer{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		db.Close()
		return nil, err
	}

	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		Interval: time.Second,
		db:       db,
		cli:      cli,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposalType: c.handleEventProposal,
		types.EventVoteType:     c.handleEventVote,
		types.EventMemberType:   c.handleEventMember,
		types.EventTransferType: c.handleEventTransfer,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventProposal(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposal(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	p, err := findProposal(db, ev.Proposal)
	if err != nil {
		return err
	}
	p.ProposalId = ev.Proposal
	p.Author = ev.Author
	p.Kind = uint64(ev.Kind)
	p.Status = uint64(ev.Status)
	p.Title = ev.Title
	p.Description = ev.Description
	p.Amount = ev.Amount
	p.CreatedAt = ev.CreatedAt
	p.UpdatedAt = ev.UpdatedAt
	p.Approves, p.Rejects = 0, 0
	if !ev.Resubmitted {
		p.NewHeight = uint64(height)
	}
	return db.Save(p).Error
}

func (c *ChainIndexer) handleEventVote(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVote(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	vote := ProposalVote{
		Proposal: ev.Proposal,
		Voter:    ev.Voter,
		Approve:  ev.Approve,
		Epoch:    ev.Epoch,
		Decision: ev.Decision,
		Height:   uint64(height),
	}
	if err := db.Create(&vote).Error; err != nil {
		return err
	}

	p, err := findProposal(db, ev.Proposal)
	if err != nil {
		return err
	}
	if p.Id == 0 {
		c.logger.Error("vote on unknown proposal", "proposal", ev.Proposal, "height", height)
		return nil
	}
	p.Status = uint64(ev.Status)
	switch ev.Decision {
	case quorum.DraftReset.String():
		p.Approves, p.Rejects = 0, 0
		p.Epoch = ev.Epoch + 1
	case quorum.Accepted.String(), quorum.Rejected.String():
		p.SettleHeight = uint64(height)
		fallthrough
	default:
		p.Approves, p.Rejects = ev.Approves, ev.Rejects
		p.Epoch = ev.Epoch
	}
	return db.Save(p).Error
}

func (c *ChainIndexer) handleEventMember(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventMember(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	return db.Save(&Member{
		Address:  ev.Address,
		Index:    ev.Index,
		Proposal: ev.Proposal,
		Genesis:  ev.Genesis,
		Height:   uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventTransfer(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventTransfer(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	return db.Create(&Transfer{
		Proposal: ev.Proposal,
		To:       ev.To,
		Amount:   ev.Amount,
		Height:   uint64(height),
	}).Error
}

// findProposal returns the stored proposal or a fresh row with Id 0.
func findProposal(db *gorm.DB, id uint64) (*Proposal, error) {
	var p Proposal
	err := db.Where("proposal_id = ?", id).First(&p).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &p, nil
}

func (c *ChainIndexer) query(ctx context.Context, path string, data []byte, v any) error {
	res, err := c.cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return err
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("%w: %s code %d: %s", ErrQueryFail, path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, v)
}

// seedMembers loads the genesis registry, which InitChain reports to no block.
func (c *ChainIndexer) seedMembers(ctx context.Context) error {
	var cnt uint64
	if err := c.db.Model(&Member{}).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	var offset uint64
	for {
		page, _ := json.Marshal(types.NewPage(offset, types.DefaultPageLimit))
		var members []string
		err := c.query(ctx, types.QueryMembers, page, &members)
		if errors.Is(err, ErrQueryFail) && offset > 0 {
			// past the last page
			return nil
		}
		if err != nil {
			return err
		}
		for i, m := range members {
			err = c.db.Save(&Member{Address: m, Index: offset + uint64(i), Genesis: true}).Error
			if err != nil {
				return err
			}
		}
		if len(members) < types.DefaultPageLimit {
			c.logger.Info("members seeded", "count", offset+uint64(len(members)))
			return nil
		}
		offset += uint64(len(members))
	}
}

// indexBlock applies the events of one block and advances the stored height.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) error {
	results, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	return c.db.Transaction(func(tx *gorm.DB) error {
		for _, res := range results.TxsResults {
			if res.Code != 0 {
				continue
			}
			for _, event := range res.Events {
				if err := c.handleEvent(tx, event, height); err != nil {
					return err
				}
			}
		}
		return tx.Save(&Height{Id: 1, Height: uint64(height)}).Error
	})
}

// Sync indexes every block up to the latest height of the node.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	status, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	if status.SyncInfo.LatestBlockHeight < 1 {
		return nil
	}
	if err = c.seedMembers(ctx); err != nil {
		return err
	}
	for status.SyncInfo.LatestBlockHeight >= c.Height {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.indexBlock(ctx, c.Height); err != nil {
			return fmt.Errorf("index block %d: %w", c.Height, err)
		}
		c.logger.Debug("indexed", "height", c.Height)
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}
