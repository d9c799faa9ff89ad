package accounting

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// MarsPosition values the Mars-deposit account's lending position in the
// deposit token, per spec.md §4.F: "the first credit account owned by the
// Mars-deposit address; sum its lends entries whose denom matches the
// deposit token."
type MarsPosition struct {
	name          string
	creditMgr     ContractQuerier
	creditMgrAddr string
	owner         string
	depositDenom  string
}

// NewMarsPosition builds a MarsPosition against the Mars credit manager
// contract.
func NewMarsPosition(name string, creditMgr ContractQuerier, creditMgrAddr, owner, depositDenom string) MarsPosition {
	return MarsPosition{name: name, creditMgr: creditMgr, creditMgrAddr: creditMgrAddr, owner: owner, depositDenom: depositDenom}
}

func (m MarsPosition) Name() string { return m.name }

type marsAccountsQuery struct {
	Accounts struct {
		Owner string `json:"owner"`
	} `json:"accounts"`
}

type marsAccount struct {
	ID string `json:"id"`
}

type marsPositionsQuery struct {
	Positions struct {
		AccountID string `json:"account_id"`
	} `json:"positions"`
}

type marsLend struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type marsPositionsResp struct {
	Lends []marsLend `json:"lends"`
}

func (m MarsPosition) ValueInDepositToken(ctx context.Context) (sdkmath.Int, error) {
	accounts, err := m.queryAccounts(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if len(accounts) == 0 {
		return sdkmath.ZeroInt(), nil
	}

	positions, err := m.queryPositions(ctx, accounts[0].ID)
	if err != nil {
		return sdkmath.Int{}, err
	}

	total := sdkmath.ZeroInt()
	for _, lend := range positions.Lends {
		if lend.Denom != m.depositDenom {
			continue
		}
		amt, ok := sdkmath.NewIntFromString(lend.Amount)
		if !ok {
			return sdkmath.Int{}, fmt.Errorf("non-numeric lend amount %q for denom %q", lend.Amount, lend.Denom)
		}
		total = total.Add(amt)
	}
	return total, nil
}

func (m MarsPosition) queryAccounts(ctx context.Context) ([]marsAccount, error) {
	var q marsAccountsQuery
	q.Accounts.Owner = m.owner
	req, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal accounts query: %w", err)
	}
	data, err := m.creditMgr.QueryContractState(ctx, m.creditMgrAddr, req)
	if err != nil {
		return nil, fmt.Errorf("query mars accounts for %s: %w", m.owner, err)
	}
	var accounts []marsAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("decode mars accounts response: %w", err)
	}
	return accounts, nil
}

func (m MarsPosition) queryPositions(ctx context.Context, accountID string) (marsPositionsResp, error) {
	var q marsPositionsQuery
	q.Positions.AccountID = accountID
	req, err := json.Marshal(q)
	if err != nil {
		return marsPositionsResp{}, fmt.Errorf("marshal positions query: %w", err)
	}
	data, err := m.creditMgr.QueryContractState(ctx, m.creditMgrAddr, req)
	if err != nil {
		return marsPositionsResp{}, fmt.Errorf("query mars positions for account %s: %w", accountID, err)
	}
	var resp marsPositionsResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return marsPositionsResp{}, fmt.Errorf("decode mars positions response: %w", err)
	}
	return resp, nil
}
