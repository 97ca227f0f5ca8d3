package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/pixlmixr/minting-service/api"
	"github.com/pixlmixr/minting-service/app"
	"github.com/pixlmixr/minting-service/common"
	"github.com/pixlmixr/minting-service/eth"
	ethclient "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/ipfs"
	"github.com/pixlmixr/minting-service/mint"
	"github.com/pixlmixr/minting-service/models"
	"github.com/pixlmixr/minting-service/reporter"
	"github.com/pixlmixr/minting-service/storage"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	cliApp := &cli.App{
		Name:  "minting-service",
		Usage: "mint PIXLMIXR masterpieces as NFTs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to yaml config file", EnvVars: []string{"CONFIG_FILE"}},
			&cli.StringFlag{Name: "env", Usage: "path to .env file", EnvVars: []string{"ENV_FILE"}},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Fatal("[MAIN] Invalid path: ", err)
	}
	return abs
}

func run(c *cli.Context) error {
	app.InitConfig(absPath(c.String("config")), absPath(c.String("env")))
	app.InitLogger()
	app.InitDB()

	client, err := ethclient.NewClient(app.Config.Ethereum)
	if err != nil {
		log.Fatal("[MAIN] Error connecting to ethereum: ", err)
	}
	client.ValidateNetwork()

	var signer common.Signer
	if app.Config.Minter.Strategy == models.MinterStrategyDirect {
		signer, err = app.CreateEthereumSigner(app.Config.Ethereum)
		if err != nil {
			log.Fatal("[MAIN] ", err)
		}
	}

	waiter := eth.NewConfirmationWaiter(client, app.Config.Ethereum)
	minter, err := eth.NewChainMinter(app.Config, eth.MinterDeps{
		Client: client,
		Signer: signer,
		Waiter: waiter,
	})
	if err != nil {
		log.Fatal("[MAIN] Error creating minter: ", err)
	}
	log.Info("[MAIN] Minting with ", minter.Strategy(), " strategy from ", minter.Address())

	store := storage.InitObjectStore(app.Config.Storage)

	ledger := mint.NewLedger(app.DB)
	resultReporter := reporter.NewResultReporter(app.Config.Reporter)
	orchestrator, err := mint.NewOrchestrator(app.Config.Payment, mint.Deps{
		Guard:    mint.NewArtifactGuard(app.DB, ledger),
		Ledger:   ledger,
		Payments: eth.NewPaymentVerifier(client, ethcommon.HexToAddress(app.Config.Ethereum.PaymentTokenAddress)),
		Assets:   storage.NewAssetResolver(store, app.Config.Storage),
		Pinner:   ipfs.NewPinataPinner(app.Config.Pinata),
		Metadata: ipfs.NewMetadataBuilder(app.Config.Metadata, app.Config.Ethereum.ChainName, app.Config.Payment.TokenSymbol),
		Minter:   minter,
		Reporter: resultReporter,
	})
	if err != nil {
		log.Fatal("[MAIN] Error creating orchestrator: ", err)
	}
	health := app.NewHealthService(client, app.DB, minter)
	health.OnBalance = mint.MetricMinterBalance

	tokens := ethclient.NewNFTContract(client, ethcommon.HexToAddress(app.Config.Ethereum.NFTContractAddress))
	server := api.NewServer(app.Config.Server, api.NewHandlers(orchestrator, tokens, health, app.Config.Ethereum))

	services := []models.Service{health, server}
	for _, s := range services {
		go s.Start()
	}

	// Gracefully shut down server
	gracefulStop := make(chan os.Signal, 1)
	done := make(chan bool, 1)
	signal.Notify(gracefulStop, syscall.SIGINT, syscall.SIGTERM)
	go waitForExitSignals(gracefulStop, done)
	<-done

	log.Debug("[MAIN] Gracefully shutting down server...")
	for i := len(services) - 1; i >= 0; i-- {
		services[i].Stop()
	}
	resultReporter.Wait()
	if signer != nil {
		signer.Destroy()
	}
	if err := store.Close(); err != nil {
		log.Warn("[MAIN] Error closing object store: ", err)
	}
	client.Close()
	if err := app.DB.Disconnect(); err != nil {
		log.Warn("[MAIN] Error disconnecting database: ", err)
	}
	log.Info("[MAIN] Server gracefully stopped")
	return nil
}

func waitForExitSignals(gracefulStop chan os.Signal, done chan bool) {
	sig := <-gracefulStop
	log.Debug("[MAIN] Got signal: ", sig)
	done <- true
}
