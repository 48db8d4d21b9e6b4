package main

import (
	"os"

	"github.com/Sternrassler/jellyfin-pager/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries state shared by the commands of one invocation.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        *Config
	sel        selector
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"server":     "jellyfin.url",
	"token":      "jellyfin.token",
	"user":       "jellyfin.user_id",
	"seerr":      "seerr.url",
	"seerr-key":  "seerr.api_key",
	"redis":      "redis.addr",
	"page-size":  "pager.page_size",
	"group":      "pager.series_grouping",
	"log-level":  "log.level",
	"log-pretty": "log.pretty",
	"log-file":   "log.file",
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:          "jfpager",
		Short:        "Paged access to Jellyfin and Seerr lists",
		SilenceUsage: true,
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&c.configFile, "config", "", "config file (yaml)")
	f.String("server", "", "Jellyfin base url")
	f.String("token", "", "Jellyfin API token")
	f.String("user", "", "Jellyfin user id")
	f.String("seerr", "", "Seerr base url")
	f.String("seerr-key", "", "Seerr API key")
	f.String("redis", "", "Redis address for the response cache (empty disables it)")
	f.Int("page-size", 0, "items per page")
	f.Bool("group", false, "group episodes by series")
	f.String("log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	f.Bool("log-pretty", false, "human readable logs")
	f.String("log-file", "", "also write JSON logs to this rotated file")

	f.StringVar(&c.sel.Kind, "kind", kindItems, "list kind: items, episodes, resume, nextup, playlist, genres, persons, programs, requests")
	f.StringVar(&c.sel.Parent, "parent", "", "parent, series, playlist or channel id depending on kind")
	f.StringVar(&c.sel.Search, "search", "", "search term")
	f.StringVar(&c.sel.Filter, "filter", "", "request filter (requests) or airing (programs)")
	f.StringSliceVar(&c.sel.Types, "types", nil, "item types, e.g. Movie,Series")

	for flag, key := range flagKeys {
		if err := c.v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		newBrowseCmd(c),
		newFindCmd(c),
		newExportCmd(c),
		newServeCmd(c),
	)

	return rootCmd
}

// load reads the configuration and sets up logging. Commands that talk to a
// server use it as PreRunE.
func (c *cli) load(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(c.v, c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logging.Setup(logging.Config{
		Level:   level,
		Pretty:  cfg.Log.Pretty,
		Output:  os.Stderr,
		Service: "jfpager",
		File: logging.FileConfig{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAge,
		},
	})
	return nil
}
