package build

import (
	"fmt"

	"github.com/btcsuite/btclog/v2"
	"github.com/jrick/logrotate/rotator"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	callSiteOff   = "off"
	callSiteShort = "short"
	callSiteLong  = "long"

	// Gzip is the name of the gzip log compressor.
	Gzip = "gzip"

	// Zstd is the name of the zstd log compressor.
	Zstd = "zstd"

	defaultLogCompressor = Gzip

	// DefaultMaxLogFiles is the default maximum number of log files to
	// keep.
	DefaultMaxLogFiles = 3

	// DefaultMaxLogFileSize is the default maximum log file size in MB.
	DefaultMaxLogFileSize = 10
)

// logCompressor creates the writer of a compressor and names the file suffix
// of the rolled log files.
type logCompressor struct {
	suffix string
	new    func() (rotator.Compressor, error)
}

// logCompressors maps the supported compressor names.
var logCompressors = map[string]logCompressor{
	Gzip: {
		suffix: "gz",
		new: func() (rotator.Compressor, error) {
			return gzip.NewWriter(nil), nil
		},
	},
	Zstd: {
		suffix: "zst",
		new: func() (rotator.Compressor, error) {
			return zstd.NewWriter(nil)
		},
	},
}

// SupportedLogCompressor returns whether the given compressor is supported.
func SupportedLogCompressor(compressor string) bool {
	_, ok := logCompressors[compressor]
	return ok
}

// LogConfig holds logging configuration options.
//
//nolint:lll
type LogConfig struct {
	NoTimestamps   bool   `long:"no-timestamps" description:"Omit timestamps from log lines."`
	CallSite       string `long:"call-site" description:"Include the call-site of each log line." choice:"off" choice:"short" choice:"long"`
	Compressor     string `long:"compressor" description:"Compression algorithm to use when rotating logs." choice:"gzip" choice:"zstd"`
	MaxLogFiles    int    `long:"max-files" description:"Maximum rolled logfiles to keep (0 keeps all of them)"`
	MaxLogFileSize int    `long:"max-file-size" description:"Maximum logfile size in MB"`
}

// DefaultLogConfig returns the default logging config options.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		CallSite:       callSiteOff,
		Compressor:     defaultLogCompressor,
		MaxLogFiles:    DefaultMaxLogFiles,
		MaxLogFileSize: DefaultMaxLogFileSize,
	}
}

// Validate validates the LogConfig struct values.
func (c *LogConfig) Validate() error {
	if !SupportedLogCompressor(c.Compressor) {
		return fmt.Errorf("invalid log compressor: %v", c.Compressor)
	}

	switch c.CallSite {
	case callSiteOff, callSiteShort, callSiteLong:
	default:
		return fmt.Errorf("invalid call site option: %v", c.CallSite)
	}

	if c.MaxLogFiles < 0 {
		return fmt.Errorf("max log files must not be negative")
	}
	if c.MaxLogFileSize < 1 {
		return fmt.Errorf("max log file size must be at least 1 MB")
	}

	return nil
}

// newCompressor creates the compressor for rolled log files and returns it
// with their file suffix.
func (c *LogConfig) newCompressor() (rotator.Compressor, string, error) {
	compressor, ok := logCompressors[c.Compressor]
	if !ok {
		return nil, "", fmt.Errorf("unknown log compressor: %v",
			c.Compressor)
	}

	w, err := compressor.new()
	if err != nil {
		return nil, "", fmt.Errorf("unable to create %v compressor: %w",
			c.Compressor, err)
	}

	return w, compressor.suffix, nil
}

// HandlerOptions returns the set of btclog.HandlerOptions that the state of the
// config struct translates to.
func (c *LogConfig) HandlerOptions() []btclog.HandlerOption {
	var opts []btclog.HandlerOption
	if c.NoTimestamps {
		opts = append(opts, btclog.WithNoTimestamp())
	}

	switch c.CallSite {
	case callSiteShort:
		opts = append(opts, btclog.WithCallerFlags(btclog.Lshortfile))
	case callSiteLong:
		opts = append(opts, btclog.WithCallerFlags(btclog.Llongfile))
	}

	return opts
}
