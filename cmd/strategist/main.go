// Command strategist runs one cross-chain vault strategy's phase
// orchestrator forever, per spec.md §6: read MNEMONIC/LABEL/*_CFG_PATH from
// the environment, dial every chain, and drive the deposit ->
// register-obligations -> settle -> update-rate cycle until the process is
// killed.
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/accounting"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/authz"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/chainclient/cosmosclient"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/chainclient/evmclient"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/config"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/coprocessor"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/indexer"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/orchestrator"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/telemetry"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/types"
	"github.com/timewave-computer/neutron-cross-chain-vault-strategist/internal/withdraw/controller"
)

const signerKeyName = "strategist"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("strategist: load config: %w", err)
	}

	log, err := telemetry.NewLogger(os.Getenv("STRATEGIST_DEV") != "")
	if err != nil {
		return fmt.Errorf("strategist: build logger: %w", err)
	}
	defer log.Sync()

	_, shutdownTracer, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, "strategist-"+cfg.Label)
	if err != nil {
		return fmt.Errorf("strategist: %w", err)
	}
	defer shutdownTracer(context.Background())

	evmSigner, err := deriveEVMSigner(cfg.Mnemonic)
	if err != nil {
		return fmt.Errorf("strategist: %w", err)
	}
	kr, err := buildKeyring(cfg.Mnemonic)
	if err != nil {
		return fmt.Errorf("strategist: %w", err)
	}

	evmClient, err := evmclient.Dial(ctx, cfg.Ethereum.RPCAddr, evmSigner, log)
	if err != nil {
		return fmt.Errorf("strategist: dial ethereum: %w", err)
	}

	destClient, err := cosmosclient.Dial(ctx, cfg.Neutron.GRPCAddr, cfg.Neutron.ChainID, kr, signerKeyName, gasPrices(cfg.Neutron), log)
	if err != nil {
		return fmt.Errorf("strategist: dial neutron: %w", err)
	}
	icaClient, err := cosmosclient.Dial(ctx, cfg.Gaia.GRPCAddr, cfg.Gaia.ChainID, kr, signerKeyName, gasPrices(cfg.Gaia), log)
	if err != nil {
		return fmt.Errorf("strategist: dial gaia: %w", err)
	}

	addrs, err := resolveAddresses(cfg)
	if err != nil {
		return fmt.Errorf("strategist: %w", err)
	}

	depositDenom := cfg.Ethereum.Denoms["deposit"]
	destDenom := cfg.Neutron.Denoms["deposit"]

	positions := []accounting.Position{
		accounting.NewBalancePosition("deposit", orchestrator.CosmosBalanceSource{Client: destClient}, addrs.Deposit.String(), destDenom),
		accounting.NewBalancePosition("settlement", orchestrator.CosmosBalanceSource{Client: destClient}, addrs.Settlement.String(), destDenom),
		accounting.NewMarsPosition("mars", destClient, addrs.MarsCreditMgr, addrs.MarsDeposit.String(), destDenom),
	}
	for _, sv := range supervaultNames(cfg.Neutron.Contracts) {
		positions = append(positions, accounting.NewSupervaultPosition(
			sv, destClient, cfg.Neutron.Contracts["supervault_"+sv], orchestrator.CosmosBalanceSource{Client: destClient}, addrs.Settlement.String(), destDenom,
		))
	}
	engine := accounting.NewEngine(positions...)

	driver := authz.NewDriver(destClient, addrs.Authorization, addrs.Processor, log)
	coprocClient := coprocessor.NewClient(cfg.Coprocessor.BaseURL, http.DefaultClient, log)
	idxClient := indexer.NewClient(cfg.IndexerAPIURL, cfg.IndexerAPIKey, http.DefaultClient)
	ctrl := controller.NewController(evmClient, addrs.SourceVault)
	skipRouter := orchestrator.NewHTTPSkipRouter(cfg.EurekaAPIURL, cfg.Ethereum.ChainID, depositDenom, cfg.Neutron.ChainID, http.DefaultClient)

	tunables := types.StrategyTunables{
		IBCTransferThreshold: cfg.IBCTransferThreshold,
		RateScalingFactor:    cfg.RateScalingFactor,
		MaxRateIncrementBps:  cfg.MaxRateIncrementBps,
		MaxRateDecrementBps:  cfg.MaxRateDecrementBps,
		StrategyTimeout:      cfg.StrategyTimeout,
		ICAPollFraction:      cfg.ICAPollFraction,
	}

	splitOrder := append([]string{"mars"}, supervaultNames(cfg.Neutron.Contracts)...)
	depositSplit := types.SettlementSplitPolicy{Splits: map[string]map[string]sdkmath.LegacyDec{
		destDenom: evenSplit(splitOrder),
	}}

	worker := orchestrator.NewWorker(
		evmClient, destClient, icaClient, driver, engine, coprocClient, idxClient, ctrl, skipRouter,
		addrs, tunables, depositDenom, destDenom, depositSplit, splitOrder, log,
	)

	log.Info("strategist starting", zap.String("label", cfg.Label))
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("strategist: worker run: %w", err)
	}
	log.Info("strategist shutting down")
	return nil
}

// resolveAddresses builds an orchestrator.Addresses from the per-chain
// config's Contracts/Accounts maps, per spec.md §3's Account Graph plus the
// destination-chain contract addresses of spec.md §6.
func resolveAddresses(cfg config.StrategyConfig) (orchestrator.Addresses, error) {
	depositAddr, err := sdk.AccAddressFromBech32(cfg.Neutron.Accounts["deposit"])
	if err != nil {
		return orchestrator.Addresses{}, fmt.Errorf("accounts.deposit: %w", err)
	}
	icaAddr, err := sdk.AccAddressFromBech32(cfg.Gaia.Accounts["ica"])
	if err != nil {
		return orchestrator.Addresses{}, fmt.Errorf("accounts.ica: %w", err)
	}
	settlementAddr, err := sdk.AccAddressFromBech32(cfg.Neutron.Accounts["settlement"])
	if err != nil {
		return orchestrator.Addresses{}, fmt.Errorf("accounts.settlement: %w", err)
	}
	marsDepositAddr, err := sdk.AccAddressFromBech32(cfg.Neutron.Accounts["mars_deposit"])
	if err != nil {
		return orchestrator.Addresses{}, fmt.Errorf("accounts.mars_deposit: %w", err)
	}

	return orchestrator.Addresses{
		SourceVault:         common.HexToAddress(cfg.Ethereum.Contracts["source_vault"]),
		SourceAuthorization: common.HexToAddress(cfg.Ethereum.Contracts["source_authorization"]),
		Deposit:             depositAddr,
		ICA:                 icaAddr,
		Settlement:          settlementAddr,
		MarsDeposit:         marsDepositAddr,
		Authorization:       cfg.Neutron.Contracts["authorization"],
		Processor:           cfg.Neutron.Contracts["processor"],
		ClearingQueue:       cfg.Neutron.Contracts["clearing_queue"],
		MarsCreditMgr:       cfg.Neutron.Contracts["mars_credit_manager"],
	}, nil
}

// supervaultNames returns every configured supervault's name, parsed from
// "supervault_<name>" contract keys, sorted for deterministic split
// ordering.
func supervaultNames(contracts map[string]string) []string {
	var names []string
	for key := range contracts {
		if name, ok := strings.CutPrefix(key, "supervault_"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// evenSplit assigns an equal ratio to every destination in order; the last
// destination receives one minus the sum of the others, so any rounding
// remainder lands there and the ratios always sum to exactly one. Operators
// needing an uneven split configure one directly rather than through this
// default.
func evenSplit(order []string) map[string]sdkmath.LegacyDec {
	n := int64(len(order))
	ratio := sdkmath.LegacyOneDec().QuoInt64(n)
	out := make(map[string]sdkmath.LegacyDec, len(order))
	assigned := sdkmath.LegacyZeroDec()
	for i, dest := range order {
		if i == len(order)-1 {
			out[dest] = sdkmath.LegacyOneDec().Sub(assigned)
			continue
		}
		out[dest] = ratio
		assigned = assigned.Add(ratio)
	}
	return out
}

// gasPrices builds the minimal DecCoins gas price for chain's gas denom,
// matching the teacher's fixed low gas-price convention for local/test
// chains (e2e broadcaster configs).
func gasPrices(chain config.ChainConfig) sdk.DecCoins {
	if chain.GasDenom == "" {
		return sdk.DecCoins{}
	}
	return sdk.NewDecCoins(sdk.NewDecCoinFromDec(chain.GasDenom, sdkmath.LegacyNewDecWithPrec(25, 3)))
}

// deriveEVMSigner derives a secp256k1 ECDSA key for the Ethereum signer
// from the shared strategist mnemonic via the standard Ethereum BIP44 path
// (m/44'/60'/0'/0/0), reusing cosmos-sdk's HD derivation (the same curve
// Ethereum uses) rather than pulling in a second, Ethereum-specific HD
// wallet dependency.
func deriveEVMSigner(mnemonic string) (*ecdsa.PrivateKey, error) {
	hdPath := hd.CreateHDPath(60, 0, 0).String()
	derivedKey, err := hd.Secp256k1.Derive()(mnemonic, "", hdPath)
	if err != nil {
		return nil, fmt.Errorf("derive evm signer: %w", err)
	}
	priv, err := crypto.ToECDSA(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("evm signer: convert derived key: %w", err)
	}
	return priv, nil
}

// buildKeyring constructs an in-memory keyring holding the single signer
// account the strategist uses for every Cosmos-side chain, derived from the
// same mnemonic via the standard Cosmos BIP44 path.
func buildKeyring(mnemonic string) (keyring.Keyring, error) {
	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	kr := keyring.NewInMemory(cdc)
	if _, err := kr.NewAccount(signerKeyName, mnemonic, "", sdk.GetConfig().GetFullBIP44Path(), hd.Secp256k1); err != nil {
		return nil, fmt.Errorf("build keyring: %w", err)
	}
	return kr, nil
}
