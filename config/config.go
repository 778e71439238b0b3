package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	Debug         bool
	LogFile       string
	MediaDir      string
	MediaBucket   string
	MediaRegion   string
	AccessBaseURL string
	MaxMemory     int64

	// Args holds the positional arguments left after the flags, e.g. a subcommand.
	Args []string
}

// Parse reads flags from args. Every flag defaults to an environment variable
// (FIELD_SURVEY_<NAME>), which may come from a .env file in the working directory.
func Parse(args []string) (cfg Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}
	err = nil

	fs := flag.NewFlagSet("field-survey", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", uint(envInt("PORT", 8080)), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "field-survey.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", uint(envInt("TOKEN_TTL", 3600)), "token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", env("DEBUG", "") == "true", "log at DEBUG level")
	fs.StringVar(&cfg.LogFile, "log-file", env("LOG_FILE", ""), "also write logs to this rotated file")
	fs.StringVar(&cfg.MediaDir, "media-dir", env("MEDIA_DIR", "media"), "directory for uploaded media")
	fs.StringVar(&cfg.MediaBucket, "media-s3-bucket", env("MEDIA_S3_BUCKET", ""), "store uploaded media in this S3 bucket instead of -media-dir")
	fs.StringVar(&cfg.MediaRegion, "media-s3-region", env("MEDIA_S3_REGION", "eu-west-1"), "region of -media-s3-bucket")
	fs.StringVar(&cfg.AccessBaseURL, "access-base-url", env("ACCESS_BASE_URL", ""), "base URL of questionnaire links (default: server URL)")
	var maxMemory uint
	fs.UintVar(&maxMemory, "max-memory-mb", uint(envInt("MAX_MEMORY_MB", 32)), "multipart memory limit in MiB, larger uploads spill to disk")
	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.MaxMemory = int64(maxMemory) << 20
	cfg.Args = fs.Args()
	if cfg.AccessBaseURL == "" {
		cfg.AccessBaseURL = cfg.Url()
	}
	cfg.AccessBaseURL = strings.TrimRight(cfg.AccessBaseURL, "/")

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func env(name, def string) string {
	if v, ok := os.LookupEnv("FIELD_SURVEY_" + name); ok {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	n, err := strconv.Atoi(env(name, ""))
	if err != nil || n < 0 {
		return def
	}
	return n
}

var reAnyHost = regexp.MustCompile(`^0\.0\.0\.0`)

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = reAnyHost.ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

// QuestionnaireLink is the public access link of a questionnaire.
func (cfg Config) QuestionnaireLink(id string) string {
	return cfg.AccessBaseURL + "/" + id + "/"
}
