package main

import (
	"time"

	"netmodifier/internal/compiler"
	"netmodifier/internal/config"
	"netmodifier/internal/logger"
	"netmodifier/internal/navigation"
	"netmodifier/internal/regexutil"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AppVersion 构建时通过 -ldflags 注入
var AppVersion = "Development"

// app 命令共享的运行环境
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "netmodifier",
		Short:         "netmodifier manages declarative HTTP redirect and header rules",
		Long:          "netmodifier compiles user-defined redirect and header rules into declarative browser rules, previews redirect patterns and serves a settings API.",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Config file path")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn, error")
	flags.String("db", "", "SQLite database file name or :memory:")
	flags.String("devtools-url", "", "Chrome DevTools HTTP endpoint, e.g. http://127.0.0.1:9222")
	flags.Bool("skip-disabled", false, "Skip disabled rules when compiling and intercepting")
	flags.Bool("filter-from-variant", false, "Use urlFilter as the condition of header rules")
	flags.Bool("substitute-navigated-url", false, "Substitute placeholders against the navigated URL")

	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("sqlite.db", flags.Lookup("db"))
	_ = a.v.BindPFlag("browser.devtools-url", flags.Lookup("devtools-url"))
	_ = a.v.BindPFlag("compat.skip-disabled", flags.Lookup("skip-disabled"))
	_ = a.v.BindPFlag("compat.filter-from-variant", flags.Lookup("filter-from-variant"))
	_ = a.v.BindPFlag("compat.substitute-navigated-url", flags.Lookup("substitute-navigated-url"))

	root.AddCommand(
		newCompileCmd(a),
		newPreviewCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(a.v, path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Writers: cfg.Log.Writer,
		File:    cfg.Log.File,
	})
	return nil
}

func (a *app) regexCache() *regexutil.Cache {
	return regexutil.New(regexutil.Options{
		Size:         a.cfg.Regex.CacheSize,
		MatchTimeout: time.Duration(a.cfg.Regex.MatchTimeoutMS) * time.Millisecond,
	})
}

func (a *app) compilerOptions() compiler.Options {
	opts := compiler.Options{SkipDisabled: a.cfg.Compat.SkipDisabled}
	if a.cfg.Compat.FilterFromVariant {
		opts.FilterSource = compiler.FilterFromVariant
	}
	return opts
}

func (a *app) navigationOptions() navigation.Options {
	opts := navigation.Options{SkipDisabled: a.cfg.Compat.SkipDisabled}
	if a.cfg.Compat.SubstituteNavigatedURL {
		opts.Subject = navigation.SubjectNavigatedURL
	}
	return opts
}
