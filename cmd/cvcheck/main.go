package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/pkg/client"
	"github.com/bcalm/launchpad_server/internal/pkg/logger"
)

var (
	filePath       = flag.String("file", "", "CV file to upload (pdf, doc, docx)")
	targetRole     = flag.String("role", "", "Target role")
	currentStatus  = flag.String("status", "", "student_fresher, working_professional or switching_careers")
	yearsExp       = flag.Int("years", -1, "Years of experience")
	jobDescription = flag.String("jd", "", "Path to a job description text file")
	token          = flag.String("token", os.Getenv("LAUNCHPAD_TOKEN"), "Bearer token (optional)")
	baseURL        = flag.String("base-url", "", "API base URL (overrides poller.base_url)")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: cvcheck -file cv.pdf [-role ...] [-jd jd.txt]")
		os.Exit(2)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, "console")

	if *baseURL != "" {
		cfg.Poller.BaseURL = *baseURL
	}

	fields := map[string]string{
		"target_role":    *targetRole,
		"current_status": *currentStatus,
	}
	if *yearsExp >= 0 {
		fields["years_experience"] = strconv.Itoa(*yearsExp)
	}
	if *jobDescription != "" {
		jd, err := os.ReadFile(*jobDescription)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read job description")
		}
		fields["job_description"] = string(jd)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []client.Option
	if *token != "" {
		opts = append(opts, client.WithToken(*token))
	}
	c := client.New(cfg.Poller, opts...)

	jobID, err := c.UploadCV(ctx, *filePath, fields)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			log.Fatal().Int("code", apiErr.Code).Msg(apiErr.Message)
		}
		log.Fatal().Err(err).Msg("upload failed")
	}
	log.Info().Str("job_id", jobID).Msg("uploaded, waiting for analysis")

	job, err := c.WaitForJob(ctx, jobID)
	if errors.Is(err, client.ErrPollTimeout) {
		log.Fatal().Str("job_id", jobID).Msg("Analysis is taking longer than expected. Please try again later.")
	}
	if err != nil {
		log.Fatal().Err(err).Str("job_id", jobID).Msg("polling failed")
	}

	if job.Status == model.JobStatusFailed {
		log.Error().Str("job_id", jobID).Msg(job.ErrorText)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job.Report); err != nil {
		log.Fatal().Err(err).Msg("failed to print report")
	}
}
