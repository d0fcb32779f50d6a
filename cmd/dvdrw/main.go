// Command dvdrw inspects, verifies, redacts and copies recorded HTTP cassettes.
package main

import (
	"context"
	"io"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/dvd-rw/dvdrw/config/o11y"
	"github.com/dvd-rw/dvdrw/config/secret"
	"github.com/dvd-rw/dvdrw/termination"
)

// Version is set at build time.
var Version = "dev"

type cli struct {
	S3Endpoint    string        `name:"s3-endpoint" env:"DVDRW_S3_ENDPOINT" help:"S3 endpoint override, e.g. a minio URL"`
	S3Region      string        `name:"s3-region" env:"DVDRW_S3_REGION" default:"us-east-1" help:"S3 region"`
	S3AccessKey   secret.String `name:"s3-access-key" env:"DVDRW_S3_ACCESS_KEY" help:"S3 access key, the default AWS credential chain is used when unset"`
	S3SecretKey   secret.String `name:"s3-secret-key" env:"DVDRW_S3_SECRET_KEY" help:"S3 secret key"`
	RedisPassword secret.String `name:"redis-password" env:"DVDRW_REDIS_PASSWORD" help:"Password for redis:// locations"`
	Debug         bool          `env:"DVDRW_DEBUG" help:"Print trace spans to stderr"`

	Inspect inspectCmd `cmd:"" help:"Print the interactions recorded in cassettes"`
	Verify  verifyCmd  `cmd:"" help:"Check every recorded interaction can be replayed"`
	Redact  redactCmd  `cmd:"" help:"Re-record a cassette with headers and JSON fields removed"`
	Copy    copyCmd    `cmd:"" help:"Copy a cassette between locations"`
}

func main() {
	ctx, stop := termination.WithSignals(context.Background())
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		log.Fatal("dvdrw: ", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	c := cli{}
	parser, err := kong.New(&c,
		kong.Name("dvdrw"),
		kong.Description("Work with recorded HTTP cassettes. Locations are file paths, s3://bucket/key or redis://host:port/key."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx, cleanup, err := o11y.Setup(ctx, o11y.Config{
		Service: "dvdrw",
		Version: Version,
		Mode:    strings.Fields(kctx.Command())[0],
		Debug:   c.Debug,
		Writer:  stderr,
	})
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	a := &app{ctx: ctx, cli: &c, out: stdout}
	defer a.close(&err)
	return kctx.Run(a)
}
