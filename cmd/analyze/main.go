// analyze 在本地跑一遍完整分析流程，不落库，用于调试提示词和模型输出
package main

import (
	"context"
	"contract-insight/logger"
	"contract-insight/logic/analysis"
	"contract-insight/logic/chat"
	"contract-insight/logic/ingestion/loaders"
	"contract-insight/logic/normalize"
	"contract-insight/types"
	"contract-insight/vars"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

type options struct {
	file    string
	tier    string
	raw     bool
	timeout time.Duration
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.file, "file", "", "contract file to analyze (.pdf or plain text)")
	fs.StringVar(&o.tier, "tier", "free", "analysis tier: free or premium")
	fs.BoolVar(&o.raw, "normalize-only", false, "read a raw model response from -file (or stdin) and only normalize it")
	fs.DurationVar(&o.timeout, "timeout", 5*time.Minute, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.file == "" && !o.raw {
		return o, errors.New("-file is required")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	z := logger.Init(vars.APP_ENV)
	defer z.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	out, err := run(ctx, opts)
	if err != nil {
		z.Fatal("analyze failed", zap.Error(err))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		z.Fatal("encode output failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options) (any, error) {
	tier := types.ParseTier(opts.tier)

	if opts.raw {
		raw, err := readInput(opts.file)
		if err != nil {
			return nil, err
		}
		a, report := normalize.Inspect(raw, tier)
		return types.NormalizeResponse{Analysis: a, Path: string(report.Path), Reason: report.Reason}, nil
	}

	text, err := loaders.LoadFile(ctx, opts.file)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%s contains no text", opts.file)
	}

	m, err := chat.NewChatModel(ctx, chat.EnvConfig())
	if err != nil {
		return nil, err
	}
	analyzer := analysis.NewAnalyzer(chat.Guard(m, chat.DefaultGuardConfig("cli")))

	contractType, err := analyzer.DetectContractType(ctx, text)
	if err != nil {
		zap.L().Warn("detect contract type failed", zap.Error(err))
	}
	a, report, err := analyzer.Analyze(ctx, text, tier, contractType)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"file":         opts.file,
		"contractType": contractType,
		"tier":         tier,
		"path":         report.Path,
		"scoreBadge":   types.BadgeFor(a.OverallScore),
		"analysis":     a,
	}, nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
