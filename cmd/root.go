// Package cmd contains the simbatch commands.
package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/utkarsh5026/scorepool/cmd/util"
	"github.com/utkarsh5026/scorepool/internal/algorithms"
	"github.com/utkarsh5026/scorepool/internal/logger"
	"github.com/utkarsh5026/scorepool/pool"
)

const (
	poolSizeFlag       = "pool-size"
	poolSizeConf       = "pool.size"
	chunkSizeFlag      = "chunk-size"
	chunkSizeConf      = "pool.chunk-size"
	affinityFlag       = "affinity"
	affinityConf       = "pool.affinity"
	rateLimitFlag      = "rate-limit"
	rateLimitConf      = "pool.rate-limit"
	respawnFlag        = "respawn"
	respawnConf        = "pool.respawn"
	respawnInitialFlag = "respawn-initial-delay"
	respawnInitialConf = "pool.respawn-initial-delay"
	respawnMaxFlag     = "respawn-max-delay"
	respawnMaxConf     = "pool.respawn-max-delay"
	logFormatFlag      = "log-format"
	logFormatConf      = "log.format"
	logLevelFlag       = "log-level"
	logLevelConf       = "log.level"
)

// NewRootCommand returns the simbatch root command. Settings are read from
// CLI flags, environment variables prefixed with SIMBATCH, or simbatch.yaml
// (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("simbatch")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("SIMBATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	for _, path := range []string{"$HOME/.simbatch", "."} {
		viper.AddConfigPath(path)
	}

	root := &cobra.Command{
		Use:   "simbatch",
		Short: "Score query strings against large target lists on a pool of worker units",
		Long: `simbatch scores one or more query strings against a list of targets using
Levenshtein distance or trigram similarity. Large target lists are split into
chunks and spread across a fixed pool of worker units.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var notFound viper.ConfigFileNotFoundError
			if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
			return nil
		},
	}

	bindPoolFlags(root)

	root.AddCommand(NewScoreCommand())
	root.AddCommand(NewBenchCommand())
	return root
}

func bindPoolFlags(command *cobra.Command) {
	flags := command.PersistentFlags()

	flags.Int(poolSizeFlag, 0, "number of worker units (0 = min(4, NumCPU))")
	util.MustBindPFlag(poolSizeConf, flags.Lookup(poolSizeFlag))
	util.MustBindEnv(poolSizeConf, "SIMBATCH_POOL_SIZE")

	flags.Int(chunkSizeFlag, pool.DefaultChunkSize, "largest target list sent to one worker unit")
	util.MustBindPFlag(chunkSizeConf, flags.Lookup(chunkSizeFlag))
	util.MustBindEnv(chunkSizeConf, "SIMBATCH_CHUNK_SIZE")

	flags.Bool(affinityFlag, false, "pin each worker unit to a CPU core")
	util.MustBindPFlag(affinityConf, flags.Lookup(affinityFlag))
	util.MustBindEnv(affinityConf, "SIMBATCH_AFFINITY")

	flags.Float64(rateLimitFlag, 0, "maximum chunk messages posted per second (0 = unlimited)")
	util.MustBindPFlag(rateLimitConf, flags.Lookup(rateLimitFlag))
	util.MustBindEnv(rateLimitConf, "SIMBATCH_RATE_LIMIT")

	flags.String(respawnFlag, "", "replace faulted worker units using this backoff: exponential, jittered or decorrelated")
	util.MustBindPFlag(respawnConf, flags.Lookup(respawnFlag))
	util.MustBindEnv(respawnConf, "SIMBATCH_RESPAWN")

	flags.Duration(respawnInitialFlag, 50*time.Millisecond, "first respawn delay")
	util.MustBindPFlag(respawnInitialConf, flags.Lookup(respawnInitialFlag))
	util.MustBindEnv(respawnInitialConf, "SIMBATCH_RESPAWN_INITIAL_DELAY")

	flags.Duration(respawnMaxFlag, 5*time.Second, "upper bound of the respawn delay")
	util.MustBindPFlag(respawnMaxConf, flags.Lookup(respawnMaxFlag))
	util.MustBindEnv(respawnMaxConf, "SIMBATCH_RESPAWN_MAX_DELAY")

	flags.String(logFormatFlag, "text", "log format: text or json")
	util.MustBindPFlag(logFormatConf, flags.Lookup(logFormatFlag))
	util.MustBindEnv(logFormatConf, "SIMBATCH_LOG_FORMAT")

	flags.String(logLevelFlag, "none", "log level: none, debug, info, warn or error")
	util.MustBindPFlag(logLevelConf, flags.Lookup(logLevelFlag))
	util.MustBindEnv(logLevelConf, "SIMBATCH_LOG_LEVEL")
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetString(logFormatConf), viper.GetString(logLevelConf))
}

// controllerOptions translates the bound pool settings into controller
// options. extra is applied last.
func controllerOptions(log *zap.Logger, extra ...pool.Option) ([]pool.Option, error) {
	opts := []pool.Option{
		pool.WithLogger(log),
		pool.WithPoolSize(viper.GetInt(poolSizeConf)),
		pool.WithChunkSize(viper.GetInt(chunkSizeConf)),
		pool.WithUnitAffinity(viper.GetBool(affinityConf)),
	}

	if perSec := viper.GetFloat64(rateLimitConf); perSec > 0 {
		opts = append(opts, pool.WithDispatchRateLimit(perSec, max(1, int(perSec))))
	}

	if name := viper.GetString(respawnConf); name != "" {
		kind, ok := algorithms.ParseBackoffType(name)
		if !ok {
			return nil, fmt.Errorf("unknown respawn backoff: %s", name)
		}
		opts = append(opts, pool.WithUnitRespawn(kind,
			viper.GetDuration(respawnInitialConf),
			viper.GetDuration(respawnMaxConf),
		))
	}

	return append(opts, extra...), nil
}
