package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/stake-plus/bst-governance/src/gate"
	"github.com/stake-plus/bst-governance/src/gov"
	"github.com/stake-plus/bst-governance/src/governance"
	"github.com/stake-plus/bst-governance/src/reads"
	"github.com/stake-plus/bst-governance/src/session"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withReads runs fn against a freshly dialed chain under the global timeout.
func withReads(cmd *cobra.Command, fn func(ctx context.Context, svc *reads.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), globalFlags.timeout)
	defer cancel()
	svc, closeFn, err := dialReads(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

type gateReport struct {
	Address    string                               `json:"address,omitempty"`
	Decision   gate.Decision                        `json:"gate"`
	Title      string                               `json:"title,omitempty"`
	Message    string                               `json:"message,omitempty"`
	Membership reads.Snapshot[gov.MembershipRecord] `json:"membership"`
}

// evaluateGate mirrors the gateway's access check for an arbitrary wallet.
func evaluateGate(ctx context.Context, svc *reads.Service, addr *common.Address, required *gov.Tier) (gateReport, error) {
	in := gate.Input{
		Configured:   svc.Chain().Membership.Configured(),
		Connected:    addr != nil,
		RequiredTier: required,
	}
	var rep gateReport
	if addr != nil {
		rep.Address = addr.Hex()
		if in.Configured {
			snap, err := svc.Membership(ctx, *addr)
			if err != nil {
				return rep, err
			}
			rep.Membership = snap
			if !snap.Ready() {
				return rep, fmt.Errorf("membership for %s is %s", addr.Hex(), snap.Status)
			}
			in.IsMember = snap.Value.IsMember
			in.Tier = snap.Value.Tier
		}
	}
	rep.Decision = gate.Decide(in)
	rep.Title, rep.Message = rep.Decision.Title(), rep.Decision.Message()
	return rep, nil
}

func parseOptionalAddress(raw string) (*common.Address, error) {
	if raw == "" {
		return nil, nil
	}
	a, err := gov.ParseAddress(raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func gateCommand() *cobra.Command {
	var address, tier string
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Evaluate the access gate for a wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := parseOptionalAddress(address)
			if err != nil {
				return err
			}
			var required *gov.Tier
			if tier != "" {
				t, err := gov.ParseTier(tier)
				if err != nil {
					return err
				}
				required = &t
			}
			return withReads(cmd, func(ctx context.Context, svc *reads.Service) error {
				rep, err := evaluateGate(ctx, svc, addr, required)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address; empty means disconnected")
	cmd.Flags().StringVar(&tier, "tier", "", "minimum tier required (Basic, Silver, Gold, Platinum)")
	return cmd
}

func membershipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "membership <address>",
		Short: "Show membership and voting power for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := gov.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return withReads(cmd, func(ctx context.Context, svc *reads.Service) error {
				m, err := svc.Membership(ctx, addr)
				if err != nil {
					return err
				}
				vp, err := svc.VotingPower(ctx, addr)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"address":     addr.Hex(),
					"displayName": svc.DisplayName(ctx, addr),
					"membership":  m,
					"votingPower": vp,
				})
			})
		},
	}
}

func proposalCommand() *cobra.Command {
	var voter string
	cmd := &cobra.Command{
		Use:   "proposal <id>",
		Short: "Show a proposal's state, tallies and deadline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := new(big.Int).SetString(args[0], 10)
			if !ok || id.Sign() < 0 {
				return fmt.Errorf("invalid proposal id %q", args[0])
			}
			who, err := parseOptionalAddress(voter)
			if err != nil {
				return err
			}
			return withReads(cmd, func(ctx context.Context, svc *reads.Service) error {
				snap, err := svc.Proposal(ctx, id, who)
				if err != nil {
					return err
				}
				if !snap.Ready() {
					return fmt.Errorf("proposal %s is %s", id, snap.Status)
				}
				sess := session.Disconnected()
				if who != nil {
					sess = session.Connected(*who, svc.Chain().ChainID)
				}
				return writeJSON(cmd.OutOrStdout(), governance.NewView(snap.Value.Proposal, snap.Value.Quorum, sess, time.Now()))
			})
		},
	}
	cmd.Flags().StringVar(&voter, "voter", "", "evaluate hasVoted and canVote for this wallet")
	return cmd
}
