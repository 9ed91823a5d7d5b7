package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"genvid/internal/adapter/repo"
	"genvid/internal/domain"
	"genvid/internal/events"
	"genvid/internal/infra"
	"genvid/internal/infra/credentials"
	"genvid/internal/middleware"
)

func main() {
	var (
		jobFlag    int64
		failFlag   bool
		reasonFlag string
		tokenFlag  int64
		ttlFlag    time.Duration
		geminiFlag string
	)

	flag.Int64Var(&jobFlag, "job", 0, "generation job ID to inspect")
	flag.BoolVar(&failFlag, "fail", false, "mark the RUNNING job given by -job as FAILED")
	flag.StringVar(&reasonFlag, "reason", "abandoned by operator", "error message stored with -fail")
	flag.Int64Var(&tokenFlag, "token", 0, "print a bearer token for this user ID and exit")
	flag.DurationVar(&ttlFlag, "ttl", 24*time.Hour, "lifetime of the token printed by -token")
	flag.StringVar(&geminiFlag, "set-gemini-key", "", "store the Gemini API key used by workers and exit")
	flag.Parse()

	if tokenFlag > 0 {
		secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
		if secret == "" {
			exitWithError(errors.New("JWT_SECRET is required"))
		}
		token, err := middleware.SignJWT(secret, middleware.TokenClaims{
			Sub: strconv.FormatInt(tokenFlag, 10),
			Exp: time.Now().Add(ttlFlag).Unix(),
		})
		if err != nil {
			exitWithError(fmt.Errorf("failed to sign token: %w", err))
		}
		fmt.Println(token)
		return
	}

	if jobFlag <= 0 && geminiFlag == "" {
		exitWithError(errors.New("one of -job, -token or -set-gemini-key must be provided"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "jobctl")
	runner := infra.NewSQLRunner(pool, logger)

	if geminiFlag != "" {
		if err := credentials.NewStore(runner).SetAPIKey(ctx, credentials.ProviderGemini, geminiFlag); err != nil {
			exitWithError(err)
		}
		fmt.Println("Gemini API key stored")
		return
	}

	jobs := repo.NewJobRepository(runner)

	if failFlag {
		ok, err := jobs.MarkFailed(ctx, jobFlag, domain.JobStatusRunning, reasonFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to update job: %w", err))
		}
		if !ok {
			exitWithError(fmt.Errorf("job %d is not RUNNING", jobFlag))
		}
	}

	job, err := jobs.GetByID(ctx, jobFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load job: %w", err))
	}
	out, err := json.MarshalIndent(struct {
		events.JobView
		UserID           int64 `json:"user_id"`
		DispatchAttempts int   `json:"dispatch_attempts"`
	}{events.NewJobView(*job), job.UserID, job.DispatchAttempts}, "", "  ")
	if err != nil {
		exitWithError(err)
	}
	fmt.Println(string(out))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
