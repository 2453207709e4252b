package deployers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stackforge/orderhub-backend/internal/logger"
	"github.com/stackforge/orderhub-backend/pkg/credentials"
	"github.com/stackforge/orderhub-backend/pkg/domain/entities"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// LocalExec runs the provisioning tool (terraform, tofu or helm) as a child
// process. Dispatch is synchronous from the manager's point of view: Start
// blocks until the tool exits, which is why it always runs on the task
// manager, never on a request thread.
type LocalExec struct {
	kind     entities.DeployerKind
	binary   string
	workRoot string
}

func NewLocalExec(kind entities.DeployerKind, binary string, workRoot string) *LocalExec {
	return &LocalExec{kind: kind, binary: binary, workRoot: workRoot}
}

func (l *LocalExec) Start(ctx context.Context, order *entities.OrderEntity, credential credentials.Credential) (DispatchResult, error) {
	workDir := filepath.Join(l.workRoot, order.ServiceID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return DispatchResult{}, fmt.Errorf("prepare work dir: %w", err)
	}

	if len(order.RequestBody) > 0 {
		if err := os.WriteFile(filepath.Join(workDir, l.varsFileName()), order.RequestBody, 0o600); err != nil {
			return DispatchResult{}, fmt.Errorf("write variables file: %w", err)
		}
	}

	run := l.runCommand(ctx, order, workDir, credential)
	outcome := l.outcomeFrom(ctx, order, workDir, credential, run)
	return DispatchResult{Completed: true, Outcome: outcome}, nil
}

type runResult struct {
	exitCode int
	stdout   string
	stderr   string
	err      error
}

func (l *LocalExec) runCommand(ctx context.Context, order *entities.OrderEntity, workDir string, credential credentials.Credential) runResult {
	args, err := l.argsFor(order)
	if err != nil {
		return runResult{exitCode: -1, err: err}
	}

	cmd := exec.CommandContext(ctx, l.binary, args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), envFrom(credential)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("running provisioning tool",
		zap.String("binary", l.binary),
		zap.Strings("args", args),
		zap.String("orderId", order.ID.String()),
		zap.String("traceId", entities.TraceIDFrom(ctx)))

	err = cmd.Run()
	result := runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
	if cmd.ProcessState != nil {
		result.exitCode = cmd.ProcessState.ExitCode()
	} else {
		result.exitCode = -1
	}
	return result
}

func (l *LocalExec) outcomeFrom(ctx context.Context, order *entities.OrderEntity, workDir string, credential credentials.Credential, run runResult) *entities.Outcome {
	if run.exitCode == 0 && run.err == nil {
		outputs := l.collectOutputs(ctx, workDir, credential)
		return &entities.Outcome{Success: true, ResultProperties: outputs}
	}

	detail := &entities.ErrorDetail{
		Code:      entities.ErrorCodeExecutionFailed,
		Message:   fmt.Sprintf("%s exited with code %d: %s", l.binary, run.exitCode, tail(run.stderr, 2000)),
		Retryable: true,
	}
	if run.err != nil && run.exitCode < 0 {
		detail.Message = fmt.Sprintf("%s failed to run: %v", l.binary, run.err)
	}
	if rateLimited(run.stderr) {
		detail.Code = entities.ErrorCodeRateLimited
		detail.Retryable = false
	}
	logger.Error("provisioning tool failed",
		zap.String("binary", l.binary),
		zap.Int("exitCode", run.exitCode),
		zap.String("orderId", order.ID.String()),
		zap.String("traceId", entities.TraceIDFrom(ctx)))
	return &entities.Outcome{Success: false, Error: detail}
}

// collectOutputs reads the tool's structured outputs after a successful
// apply. A failure here is diagnostic only and never fails the order.
func (l *LocalExec) collectOutputs(ctx context.Context, workDir string, credential credentials.Credential) datatypes.JSON {
	if l.kind == entities.DeployerKindHelm {
		return nil
	}

	cmd := exec.CommandContext(ctx, l.binary, "output", "-json")
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), envFrom(credential)...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		logger.Warn("could not read tool outputs", zap.Error(err))
		return nil
	}
	if !json.Valid(stdout.Bytes()) {
		return nil
	}
	return datatypes.JSON(stdout.Bytes())
}

func (l *LocalExec) argsFor(order *entities.OrderEntity) ([]string, error) {
	if l.kind == entities.DeployerKindHelm {
		release := order.ServiceID.String()
		switch order.TaskType {
		case entities.TaskTypeDeploy, entities.TaskTypeModify, entities.TaskTypeRecreate, entities.TaskTypePort:
			args := []string{"upgrade", "--install", release, ".", "--wait"}
			if len(order.RequestBody) > 0 {
				args = append(args, "-f", l.varsFileName())
			}
			return args, nil
		case entities.TaskTypeDestroy:
			return []string{"uninstall", release, "--wait"}, nil
		}
		return nil, fmt.Errorf("task type %q is not executable by helm", order.TaskType)
	}

	switch order.TaskType {
	case entities.TaskTypeDeploy, entities.TaskTypeModify, entities.TaskTypeRecreate, entities.TaskTypePort:
		return []string{"apply", "-auto-approve", "-input=false", "-no-color"}, nil
	case entities.TaskTypeDestroy:
		return []string{"destroy", "-auto-approve", "-input=false", "-no-color"}, nil
	}
	return nil, fmt.Errorf("task type %q is not executable by %s", order.TaskType, l.binary)
}

func (l *LocalExec) varsFileName() string {
	if l.kind == entities.DeployerKindHelm {
		return "values.json"
	}
	return "orderhub.auto.tfvars.json"
}

func envFrom(credential credentials.Credential) []string {
	env := make([]string, 0, len(credential.Properties))
	for k, v := range credential.Properties {
		env = append(env, k+"="+v)
	}
	return env
}

func rateLimited(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "ratelimit") ||
		strings.Contains(s, "throttl")
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
