package reporter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/pixlmixr/minting-service/models"
)

const updateMintPath = "/update-mint"

// ResultReporter notifies the persistence service about completed mints.
// Report never blocks and never fails the caller.
type ResultReporter interface {
	Report(report models.MintReport)
	// Wait blocks until in-flight reports are done.
	Wait()
}

type webhookReporter struct {
	cli *gentleman.Client
	wg  sync.WaitGroup
}

type noopReporter struct{}

func (noopReporter) Report(report models.MintReport) {
	log.WithField("artifact_id", report.MasterpieceId).Debug("[REPORTER] No reporter configured, skipping")
}

func (noopReporter) Wait() {}

func NewResultReporter(config models.ReporterConfig) ResultReporter {
	if config.URL == "" {
		return noopReporter{}
	}

	cli := gentleman.New().URL(strings.TrimRight(config.URL, "/"))
	cli.Use(timeout.Request(time.Duration(config.TimeoutMillis) * time.Millisecond))
	if config.APIToken != "" {
		cli.SetHeader("Authorization", "Bearer "+config.APIToken)
	}
	return &webhookReporter{cli: cli}
}

func (r *webhookReporter) Report(report models.MintReport) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		logger := log.WithField("artifact_id", report.MasterpieceId)
		if err := r.send(report); err != nil {
			logger.Warn("[REPORTER] ", err)
			return
		}
		logger.Debug("[REPORTER] Mint reported")
	}()
}

func (r *webhookReporter) send(report models.MintReport) error {
	req := r.cli.Post()
	req.AddPath(updateMintPath)
	req.JSON(report)

	resp, err := req.Send()
	if err != nil {
		return fmt.Errorf("%w: %s", models.ErrReporting, err.Error())
	}
	defer resp.Close()
	if !resp.Ok {
		return fmt.Errorf("%w: persistence service responded %d", models.ErrReporting, resp.StatusCode)
	}
	return nil
}

func (r *webhookReporter) Wait() {
	r.wg.Wait()
}
