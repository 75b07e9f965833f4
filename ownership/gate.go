// Package ownership implements the eligibility check: does a wallet hold at
// least one token from any of a fixed list of ERC-721 collections.
//
// Each configured contract is asked for balanceOf(wallet) through a read-only
// eth_call. The first positive balance wins. A failing contract is logged and
// counted as a zero balance, so infrastructure problems surface as "not
// eligible" rather than as errors.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/holder-address-registry/interfaces"
	"github.com/ruteri/holder-address-registry/metrics"
)

const erc721BalanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// ERC721ABI is the subset of the ERC-721 ABI used by the gate.
var ERC721ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc721BalanceOfABI))
	if err != nil {
		panic(fmt.Sprintf("invalid ERC-721 ABI: %v", err))
	}
	ERC721ABI = parsed
}

// ContractCaller performs read-only contract calls. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Gate checks asset ownership against a fixed list of contracts.
type Gate struct {
	caller    ContractCaller
	contracts []common.Address
	timeout   time.Duration
	log       *slog.Logger
}

var _ interfaces.OwnershipChecker = (*Gate)(nil)

// NewGate creates a gate over the given contracts. A zero timeout means calls
// are bounded only by the caller's context.
func NewGate(caller ContractCaller, contracts []common.Address, timeout time.Duration, log *slog.Logger) *Gate {
	return &Gate{
		caller:    caller,
		contracts: contracts,
		timeout:   timeout,
		log:       log,
	}
}

// ParseContracts parses hex contract addresses, rejecting malformed entries.
func ParseContracts(hexAddrs []string) ([]common.Address, error) {
	contracts := make([]common.Address, 0, len(hexAddrs))
	for _, s := range hexAddrs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid asset contract address: %q", s)
		}
		contracts = append(contracts, common.HexToAddress(s))
	}
	return contracts, nil
}

// OwnsAsset reports whether wallet has a positive balance on any configured contract.
func (g *Gate) OwnsAsset(ctx context.Context, wallet common.Address) bool {
	for _, contract := range g.contracts {
		balance, err := g.BalanceOf(ctx, contract, wallet)
		if err != nil {
			metrics.OwnershipContractErrors.Inc()
			g.log.Warn("Balance query failed, treating as zero",
				"err", err,
				slog.String("contract", contract.Hex()),
				slog.String("wallet", wallet.Hex()))
			continue
		}

		g.log.Debug("Balance query",
			slog.String("contract", contract.Hex()),
			slog.String("wallet", wallet.Hex()),
			slog.String("balance", balance.String()))

		if balance.Sign() > 0 {
			metrics.OwnershipChecks.WithLabelValues("eligible").Inc()
			return true
		}
	}

	metrics.OwnershipChecks.WithLabelValues("not_eligible").Inc()
	return false
}

// BalanceOf calls balanceOf(wallet) on an ERC-721 contract.
func (g *Gate) BalanceOf(ctx context.Context, contract, wallet common.Address) (*big.Int, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	input, err := ERC721ABI.Pack("balanceOf", wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	output, err := g.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call failed: %w", err)
	}
	if len(output) == 0 {
		return nil, errors.New("empty balanceOf result, contract may not exist")
	}

	results, err := ERC721ABI.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return balance, nil
}
