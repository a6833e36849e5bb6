package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/script"
)

// ErrNoAccounts is returned when an account source has no usable line
var ErrNoAccounts = errors.New("no valid accounts found")

// Account is one email:password pair
type Account struct {
	Email    string
	Password string
}

// ParseAccounts reads email:password lines. Blank lines and lines starting
// with # are ignored, and so are lines without an email, a password, or an @.
func ParseAccounts(r io.Reader) ([]Account, error) {
	var accounts []Account

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		email, password, found := strings.Cut(text, ":")
		email = strings.TrimSpace(email)
		password = strings.TrimSpace(password)
		if !found || email == "" || password == "" || !strings.Contains(email, "@") {
			slog.Warn("Skipping invalid account line", "line", line)
			continue
		}

		accounts = append(accounts, Account{Email: email, Password: password})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// SignInRequest names where the accounts come from. Text wins over File.
type SignInRequest struct {
	File string
	Text string
}

func (r SignInRequest) accounts() ([]Account, error) {
	if r.Text != "" {
		return ParseAccounts(strings.NewReader(r.Text))
	}
	if r.File == "" {
		return nil, ErrNoAccounts
	}

	f, err := os.Open(r.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	return ParseAccounts(f)
}

// GoogleSignIn adds a Google account to each device, assigning accounts round robin
type GoogleSignIn struct {
	exec    device.Executor
	catalog *script.Catalog
	spacing time.Duration
}

// NewGoogleSignIn wires the sign-in protocol
func NewGoogleSignIn(exec device.Executor, catalog *script.Catalog, spacing time.Duration) *GoogleSignIn {
	return &GoogleSignIn{
		exec:    exec,
		catalog: catalog,
		spacing: spacing,
	}
}

// Job returns the runner for one request
func (g *GoogleSignIn) Job(req SignInRequest) JobRunner {
	return &signInJob{GoogleSignIn: g, req: req}
}

type signInJob struct {
	*GoogleSignIn
	req SignInRequest
}

func (j *signInJob) Type() model.JobType { return model.JobTypeGoogleSignIn }

func (j *signInJob) Run(ctx context.Context, run *JobRun) (string, error) {
	if len(run.Devices) == 0 {
		return "", errors.New("no devices selected")
	}

	accounts, err := j.req.accounts()
	if err != nil {
		return "", err
	}
	if err := j.exec.Available(ctx); err != nil {
		return "", err
	}

	total := len(run.Devices)

	for i, deviceID := range run.Devices {
		if run.Stopped() {
			break
		}

		account := accounts[i%len(accounts)]
		run.Progress(i, total, fmt.Sprintf("Signing in on device %d/%d (%s)", i+1, total, deviceID))

		delta := model.JobCounters{DevicesProcessed: 1}
		if j.signIn(ctx, run, deviceID, account) {
			delta.SuccessfulDevices = 1
		} else {
			delta.FailedDevices = 1
		}
		run.Count(delta)

		if i < total-1 && !run.Wait(ctx, j.spacing) {
			break
		}
	}

	counters := run.Snapshot().Counters
	if run.Stopped() {
		return fmt.Sprintf("Google sign-in stopped after %d of %d devices: %d successful, %d failed",
			counters.DevicesProcessed, total, counters.SuccessfulDevices, counters.FailedDevices), nil
	}
	return fmt.Sprintf("Google sign-in completed: %d successful, %d failed out of %d devices",
		counters.SuccessfulDevices, counters.FailedDevices, total), nil
}

// signIn runs the whole step script on one device. A device is not interrupted
// by a stop request once its script started.
func (j *signInJob) signIn(ctx context.Context, run *JobRun, deviceID string, account Account) bool {
	// input text sees spaces as %s
	ctx = device.WithSecrets(ctx, account.Password, strings.ReplaceAll(account.Password, " ", "%s"))
	logger := slog.With("job_id", run.ID, "device_id", deviceID)

	if !device.Ready(ctx, j.exec, deviceID) {
		logger.Warn("Device not connected or not ready")
		return false
	}

	for _, check := range j.catalog.SignIn.Preflight {
		ok, err := j.check(ctx, deviceID, check)
		if err != nil || !ok {
			logger.Warn("Preflight check failed", "check", check.Name, "error", err)
			return false
		}
	}

	data := map[string]string{
		"Email":    account.Email,
		"Password": account.Password,
	}
	for _, step := range j.catalog.SignIn.Steps {
		command, err := script.Render(step.Command, data)
		if err != nil {
			logger.Error("Failed to render sign-in step", "step", step.Name, "error", device.Redact(ctx, err.Error()))
			return false
		}

		result := j.exec.Execute(ctx, command, deviceID)
		if !result.Success {
			if step.Required {
				logger.Warn("Required sign-in step failed", "step", step.Name, "error", device.Redact(ctx, result.Error))
				return false
			}
			logger.Debug("Sign-in step failed", "step", step.Name, "error", device.Redact(ctx, result.Error))
		}
		run.Pause(ctx, time.Duration(step.Wait))
	}

	if j.catalog.SignIn.Verify.Command != "" {
		if ok, err := j.check(ctx, deviceID, j.catalog.SignIn.Verify); err == nil && ok {
			logger.Info("Google account detected on device", "email", account.Email)
		} else {
			logger.Warn("Could not verify account on device", "email", account.Email, "error", err)
		}
	}

	return true
}

func (j *signInJob) check(ctx context.Context, deviceID string, check script.Check) (bool, error) {
	command, err := script.Render(check.Command, nil)
	if err != nil {
		return false, err
	}
	result := j.exec.Execute(ctx, command, deviceID)
	if !result.Success {
		return false, errors.New(result.Error)
	}
	return check.Match(result.Output)
}
