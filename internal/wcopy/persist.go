// Persistence of WorkingCopy state across process invocations: each arb
// command runs as its own process, so the edit txn accumulated by prior
// commands must be reloaded before a new command can add to it. State is
// written as human-readable YAML (gopkg.in/yaml.v3, the same library
// cmd/arb's conflict-report rendering uses) rather than a binary gob
// stream, so a user can inspect or hand-edit the wc-state.yaml file in the
// store directory when debugging a stuck working copy.
package wcopy

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arborvc/arbor/internal/branch"
	"github.com/arborvc/arbor/internal/etree"
	"github.com/arborvc/arbor/internal/remote"
	"github.com/arborvc/arbor/internal/types"
)

type wireElement struct {
	Eid       int64             `yaml:"eid"`
	ParentEid int64             `yaml:"parent_eid"`
	Name      string            `yaml:"name"`
	Kind      int               `yaml:"kind"`
	Props     map[string][]byte `yaml:"props,omitempty"`
	Text      []byte            `yaml:"text,omitempty"`
}

type wireState struct {
	ID           string        `yaml:"id"`
	RootEid      int64         `yaml:"root_eid"`
	Elements     []wireElement `yaml:"elements"`
	PredRevision int64         `yaml:"pred_revision,omitempty"`
	PredBid      string        `yaml:"pred_bid,omitempty"`
	HasPred      bool          `yaml:"has_pred,omitempty"`
}

type wireTxn struct {
	BaseRev  int64             `yaml:"base_rev"`
	NextEid  int64             `yaml:"next_eid"`
	NextBid  int               `yaml:"next_bid"`
	InnerSeq map[string]int    `yaml:"inner_seq,omitempty"`
	States   []wireState       `yaml:"states"`
}

type wireDoc struct {
	BaseRevision   int64    `yaml:"base_revision"`
	BaseBid        string   `yaml:"base_bid"`
	WorkingBid     string   `yaml:"working_bid"`
	HeadRevision   int64    `yaml:"head_revision"`
	Phase          int      `yaml:"phase"`
	ListOfCommands []string `yaml:"list_of_commands,omitempty"`
	EditTxn        wireTxn  `yaml:"edit_txn"`
}

// Save serializes wc's state to path, overwriting any prior contents. The
// immutable BaseTxn is not persisted: it is always reloadable from the
// remote access layer by (Base.Revision, Base.Bid).
func (wc *WorkingCopy) Save(path string) error {
	doc := wireDoc{
		BaseRevision:   int64(wc.Base.Revision),
		BaseBid:        string(wc.Base.Bid),
		WorkingBid:     string(wc.Working.Bid),
		HeadRevision:   int64(wc.HeadRevision),
		Phase:          int(wc.Phase),
		ListOfCommands: wc.ListOfCommands,
		EditTxn: wireTxn{
			BaseRev: int64(wc.EditTxn.BaseRev),
			NextEid: int64(wc.EditTxn.NextEidRaw()),
			NextBid: wc.EditTxn.NextBidCounter(),
		},
	}
	seq := wc.EditTxn.InnerSeqSnapshot()
	if len(seq) > 0 {
		doc.EditTxn.InnerSeq = make(map[string]int, len(seq))
		for k, v := range seq {
			doc.EditTxn.InnerSeq[string(k)] = v
		}
	}
	for bid, st := range wc.EditTxn.Branches() {
		ws := wireState{ID: string(bid), RootEid: int64(st.Tree.RootEid)}
		for _, eid := range st.Tree.Eids() {
			c, _ := st.Tree.Get(eid)
			ws.Elements = append(ws.Elements, wireElement{
				Eid:       int64(eid),
				ParentEid: int64(c.ParentEid),
				Name:      c.Name,
				Kind:      int(c.Payload.Kind),
				Props:     c.Payload.Props,
				Text:      c.Payload.Text,
			})
		}
		if st.Predecessor != nil {
			ws.HasPred = true
			ws.PredRevision = int64(st.Predecessor.Revision)
			ws.PredBid = string(st.Predecessor.Bid)
		}
		doc.EditTxn.States = append(doc.EditTxn.States, ws)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("arbor: encoding working copy state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("arbor: writing working copy state to %s: %w", path, err)
	}
	return nil
}

// LoadState reads a previously Saved WorkingCopy edit txn from path and
// reconstructs its Anchors/Phase/EditTxn, without re-contacting the remote
// access layer. Callers still need to reattach provider/session via
// AttachSession before calling mutating operations.
func LoadState(path string) (*WorkingCopy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("arbor: reading working copy state from %s: %w", path, err)
	}
	var doc wireDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("arbor: decoding working copy state: %w", err)
	}

	var states []*branch.State
	for _, ws := range doc.EditTxn.States {
		tree := etree.New(types.Eid(ws.RootEid))
		for _, el := range ws.Elements {
			var payload types.Payload
			switch types.PayloadKind(el.Kind) {
			case types.PayloadDir:
				payload = types.DirPayload(el.Props)
			case types.PayloadFile:
				payload = types.FilePayload(el.Props, el.Text)
			default:
				payload = types.SubbranchRootPayload()
			}
			if err := tree.Put(types.Eid(el.Eid), types.ElementContent{
				ParentEid: types.Eid(el.ParentEid),
				Name:      el.Name,
				Payload:   payload,
			}); err != nil {
				return nil, fmt.Errorf("arbor: restoring element %d of branch %s: %w", el.Eid, ws.ID, err)
			}
		}
		st := &branch.State{ID: branch.Bid(ws.ID), Tree: tree}
		if ws.HasPred {
			st.Predecessor = &branch.Predecessor{Revision: types.Revnum(ws.PredRevision), Bid: branch.Bid(ws.PredBid)}
		}
		states = append(states, st)
	}

	innerSeq := make(map[branch.Bid]int, len(doc.EditTxn.InnerSeq))
	for k, v := range doc.EditTxn.InnerSeq {
		innerSeq[branch.Bid(k)] = v
	}

	edit := branch.Restore(types.Revnum(doc.EditTxn.BaseRev), types.Eid(doc.EditTxn.NextEid), doc.EditTxn.NextBid, innerSeq, states)

	return &WorkingCopy{
		Base:           Anchor{Revision: types.Revnum(doc.BaseRevision), Bid: branch.Bid(doc.BaseBid)},
		Working:        Anchor{Revision: types.Revnum(doc.BaseRevision), Bid: branch.Bid(doc.WorkingBid)},
		EditTxn:        edit,
		HeadRevision:   types.Revnum(doc.HeadRevision),
		Phase:          Phase(doc.Phase),
		ListOfCommands: doc.ListOfCommands,
	}, nil
}

// AttachSession reattaches a live provider/session to a WorkingCopy that
// was reconstructed by LoadState, reloading BaseTxn from the remote access
// layer at the persisted (Base.Revision, Base.Bid) so diff/merge/commit
// have an immutable base to compare against. Call this once before any
// mutating operation runs.
func (wc *WorkingCopy) AttachSession(ctx context.Context, provider remote.Provider, url, storeDir string) error {
	session, err := provider.OpenSession(ctx, url)
	if err != nil {
		return err
	}
	baseTxn, _, err := provider.LoadBranchingState(ctx, session, storeDir, wc.Base.Revision)
	if err != nil {
		return err
	}
	wc.provider = provider
	wc.session = session
	wc.storeDir = storeDir
	wc.BaseTxn = baseTxn
	return nil
}
