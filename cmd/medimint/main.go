// cmd/medimint/main.go
//
// Entry point for the medimint dashboards. Two TUIs share one binary:
//
//	medimint clinic   clinic scheduling dashboard
//	medimint mint     NFT studio
//	medimint health   one-shot backend and chain probes
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/lafiyatech/medimint/internal/chain"
	"github.com/lafiyatech/medimint/internal/clinic"
	"github.com/lafiyatech/medimint/internal/config"
	"github.com/lafiyatech/medimint/internal/logbook"
	"github.com/lafiyatech/medimint/internal/mint"
	"github.com/lafiyatech/medimint/internal/pinning"
	"github.com/lafiyatech/medimint/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "medimint",
	Short: "Clinic scheduling and NFT minting dashboards",
}

var clinicCmd = &cobra.Command{
	Use:   "clinic",
	Short: "Open the clinic scheduling dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		lb, err := openLogbook(cfg, "clinic.log")
		if err != nil {
			return err
		}
		defer lb.Close()

		client := clinic.NewClient(cfg.File.Backend.BaseURL)
		orch := clinic.NewOrchestrator(client, clinic.WithLogbook(lb))
		lb.Info("clinic dashboard opened against %s", cfg.File.Backend.BaseURL)

		p := tea.NewProgram(tui.NewClinicApp(orch, lb), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("clinic dashboard: %w", err)
		}
		return nil
	},
}

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Open the NFT studio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		lb, err := openLogbook(cfg, "mint.log")
		if err != nil {
			return err
		}
		defer lb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		signer, err := chain.NewKeySigner(cfg.PrivateKeyHex)
		if err != nil {
			return err
		}
		provider, err := chain.Dial(ctx, cfg.File.Chain.RPCURL)
		if err != nil {
			return err
		}
		connector := chain.NewConnector(provider, chainParams(cfg), lb)
		session, err := connector.Connect(ctx, signer)
		if err != nil {
			return err
		}
		lb.Info("wallet session: %s on chain %s", session.Account.Hex(), session.ChainID)

		contract, err := chain.NewNFTContract(provider, common.HexToAddress(cfg.File.Contracts.NFT))
		if err != nil {
			return err
		}
		rewards, err := chain.NewRewardToken(provider, common.HexToAddress(cfg.File.Contracts.RewardToken))
		if err != nil {
			return err
		}
		pinner := pinning.New(cfg.File.Pinning.APIURL, cfg.File.Pinning.GatewayURL, cfg.PinningJWT)

		gallery := mint.NewGallery(contract, pinner,
			mint.WithRewardReader(rewards),
			mint.WithGalleryLogbook(lb),
		)
		workflow := mint.NewWorkflow(pinner, contract, gallery, mint.WithWorkflowLogbook(lb))

		app := tui.NewMintApp(workflow, gallery, session, signer, lb)
		p := tea.NewProgram(app, tea.WithAltScreen())
		app.Wire(p)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("nft studio: %w", err)
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the clinic backend and the chain provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client := clinic.NewClient(cfg.File.Backend.BaseURL)
		if status, err := client.Health(ctx); err != nil {
			fmt.Printf("backend  %s: %v\n", cfg.File.Backend.BaseURL, err)
		} else {
			fmt.Printf("backend  %s: %s\n", cfg.File.Backend.BaseURL, status.Status)
		}

		provider, err := chain.Dial(ctx, cfg.File.Chain.RPCURL)
		if err != nil {
			fmt.Printf("chain    %s: %v\n", cfg.File.Chain.RPCURL, err)
			return nil
		}
		id, err := provider.ChainID(ctx)
		if err != nil {
			fmt.Printf("chain    %s: %v\n", cfg.File.Chain.RPCURL, err)
			return nil
		}
		fmt.Printf("chain    %s: serving chain %s (want %d)\n", cfg.File.Chain.RPCURL, id, cfg.File.Chain.ID)

		contract, err := chain.NewNFTContract(provider, common.HexToAddress(cfg.File.Contracts.NFT))
		if err != nil {
			return err
		}
		if supply, err := contract.TotalSupply(ctx); err != nil {
			fmt.Printf("contract %s: %v\n", cfg.File.Contracts.NFT, err)
		} else {
			fmt.Printf("contract %s: %s tokens minted\n", cfg.File.Contracts.NFT, supply)
		}
		if rewardAddr, err := contract.CreatorToken(ctx); err != nil {
			fmt.Printf("rewards  %s: %v\n", cfg.File.Contracts.RewardToken, err)
		} else if configured := common.HexToAddress(cfg.File.Contracts.RewardToken); rewardAddr != configured {
			fmt.Printf("rewards  configured %s but contract reports %s\n", configured.Hex(), rewardAddr.Hex())
		} else {
			fmt.Printf("rewards  %s: matches the NFT contract\n", rewardAddr.Hex())
		}
		return nil
	},
}

func openLogbook(cfg *config.Config, name string) (*logbook.Logbook, error) {
	dir := cfg.LogsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return logbook.New(filepath.Join(dir, name))
}

func chainParams(cfg *config.Config) chain.Params {
	return chain.Params{
		ID:          cfg.File.Chain.ID,
		Name:        cfg.File.Chain.Name,
		RPCURL:      cfg.File.Chain.RPCURL,
		ExplorerURL: cfg.File.Chain.ExplorerURL,
		Currency:    cfg.File.Chain.Currency,
	}
}

func init() {
	rootCmd.AddCommand(clinicCmd, mintCmd, healthCmd)
}
