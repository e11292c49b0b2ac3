package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/revcache"
	zaplog "github.com/unkn0wn-root/revcache/log/zap"
	s3p "github.com/unkn0wn-root/revcache/provider/s3"
	"github.com/unkn0wn-root/revcache/tasks"
	"github.com/unkn0wn-root/revcache/tracing"
)

// session is the state shared by one invocation.
type session struct {
	path   string
	log    *zap.Logger
	tp     *sdktrace.TracerProvider
	mgr    *tasks.Manager
	mirror *tasks.Store // nil unless --s3-bucket is set
}

func newApp(out, errOut io.Writer) *cli.Command {
	s := &session{}
	return &cli.Command{
		Name:      "revtasks",
		Usage:     "manage build tasks bound to compile phases",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "state",
				Aliases: []string{"f"},
				Usage:   "task state file",
				Value:   "revtasks.yaml",
				Sources: cli.EnvVars("REVTASKS_STATE"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "log debug output to stderr",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print OpenTelemetry spans of recomputed values to stderr",
			},
			&cli.StringFlag{
				Name:    "s3-bucket",
				Usage:   "mirror the state file to this S3 bucket",
				Sources: cli.EnvVars("REVTASKS_S3_BUCKET"),
			},
			&cli.StringFlag{
				Name:  "s3-prefix",
				Usage: "key prefix inside the bucket",
				Value: "revtasks/",
			},
			&cli.StringFlag{
				Name:  "aws-profile",
				Usage: "shared config profile (default: AWS_PROFILE chain)",
			},
			&cli.StringFlag{
				Name:  "aws-region",
				Usage: "region override",
			},
		},
		Before: s.open,
		After:  s.close,
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "print tasks by phase",
				UsageText: "revtasks list [--phase PHASE]",
				Flags:     []cli.Flag{phaseFlag(false)},
				Action:    s.list,
			},
			{
				Name:      "add",
				Usage:     "bind goals of a project file to a phase",
				UsageText: "revtasks add --phase PHASE PROJECT GOAL...",
				Flags:     []cli.Flag{phaseFlag(true)},
				Action:    s.edit(true),
			},
			{
				Name:      "remove",
				Usage:     "unbind goals of a project file from a phase",
				UsageText: "revtasks remove --phase PHASE PROJECT GOAL...",
				Flags:     []cli.Flag{phaseFlag(true)},
				Action:    s.edit(false),
			},
			{
				Name:      "describe",
				Usage:     "print the phases a goal is bound to",
				UsageText: "revtasks describe PROJECT GOAL",
				Action:    s.describe,
			},
		},
	}
}

func phaseFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "phase",
		Aliases:  []string{"p"},
		Usage:    "one of before_compile, after_compile, before_rebuild, after_rebuild",
		Required: required,
	}
}

func (s *session) open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	s.log = zap.NewNop()
	if cmd.Bool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			return ctx, err
		}
		s.log = l
	}
	logger := zaplog.ZapLogger{L: s.log}

	var tc *tracing.Config
	if cmd.Bool("trace") {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.Root().ErrWriter), stdouttrace.WithPrettyPrint())
		if err != nil {
			return ctx, err
		}
		s.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		tc = &tracing.Config{
			TracerProvider: s.tp,
			KeyAttribute: func(k any) string {
				t := k.(tasks.Task)
				return t.ProjectPath + " " + t.Goal
			},
		}
	}

	f, err := revcache.NewFactory(revcache.NewLocalTracker(), revcache.Options{Logger: logger})
	if err != nil {
		return ctx, err
	}
	s.mgr, err = tasks.NewManager(tasks.Config{Factory: f, Logger: logger, Tracing: tc})
	if err != nil {
		return ctx, err
	}

	if bucket := cmd.String("s3-bucket"); bucket != "" {
		if s.mirror, err = openMirror(ctx, cmd, bucket, logger); err != nil {
			return ctx, err
		}
	}

	s.path = cmd.String("state")
	st, found, err := readState(s.path)
	if err != nil {
		return ctx, err
	}
	if !found && s.mirror != nil {
		// a fresh checkout picks up the shared copy
		if _, err := s.mgr.RestoreFrom(ctx, s.mirror); err != nil {
			return ctx, err
		}
	} else {
		s.mgr.LoadState(st)
	}
	s.mgr.Initialize()
	return ctx, nil
}

func openMirror(ctx context.Context, cmd *cli.Command, bucket string, logger revcache.Logger) (*tasks.Store, error) {
	var opts []func(*config.LoadOptions) error
	if p := cmd.String("aws-profile"); p != "" {
		opts = append(opts, config.WithSharedConfigProfile(p))
	}
	if r := cmd.String("aws-region"); r != "" {
		opts = append(opts, config.WithRegion(r))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p, err := s3p.NewFromConfig(awsCfg, bucket, cmd.String("s3-prefix"))
	if err != nil {
		return nil, err
	}
	return tasks.NewStore(stateCodec, tasks.StoreOptions{Key: "state", Logger: logger}, p)
}

func (s *session) close(ctx context.Context, _ *cli.Command) error {
	if s.tp != nil {
		if err := s.tp.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.log != nil {
		_ = s.log.Sync()
	}
	return nil
}

func (s *session) list(_ context.Context, cmd *cli.Command) error {
	phases := tasks.Phases[:]
	if name := cmd.String("phase"); name != "" {
		p, err := tasks.ParsePhase(name)
		if err != nil {
			return err
		}
		phases = []tasks.Phase{p}
	}
	st := s.mgr.State()
	w := cmd.Root().Writer
	for _, p := range phases {
		fmt.Fprintf(w, "%s:\n", p)
		for _, t := range st.Tasks(p) {
			fmt.Fprintf(w, "  %s %s\n", t.ProjectPath, t.Goal)
		}
	}
	return nil
}

func (s *session) edit(add bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		p, err := tasks.ParsePhase(cmd.String("phase"))
		if err != nil {
			return err
		}
		args := cmd.Args().Slice()
		if len(args) < 2 {
			return fmt.Errorf("%s: need a project file and at least one goal", cmd.Name)
		}
		ts := make([]tasks.Task, 0, len(args)-1)
		for _, g := range args[1:] {
			ts = append(ts, tasks.Task{ProjectPath: args[0], Goal: g})
		}

		if add {
			s.mgr.AddTasks(p, ts...)
		} else {
			s.mgr.RemoveTasks(p, ts...)
		}
		s.log.Debug("writing state", zap.String("path", s.path), zap.Stringer("phase", p), zap.Int("tasks", len(ts)))
		if err := writeState(s.path, s.mgr.State()); err != nil {
			return err
		}
		if s.mirror != nil {
			return s.mgr.SaveTo(ctx, s.mirror)
		}
		return nil
	}
}

func (s *session) describe(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("describe: need a project file and a goal")
	}
	d, err := s.mgr.Description(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if d == "" {
		d = "(none)"
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, d)
	return err
}
