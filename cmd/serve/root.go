package serve

import (
	"fmt"
	"strings"
	"time"

	cmdUtil "github.com/ValentinKolb/dIPC/cmd/util"
	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/ValentinKolb/dIPC/ipc/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Run a dIPC peer on stdin/stdout",
		Long:    `Run a dIPC dispatch server reading framed commands from stdin and writing responses to stdout. A demo service (echo, add, sleep) is exposed so the command doubles as the counterpart for integration testing a host process. The configuration can be set via command line flags or environment variables. The format of the environment variables is DIPC_<flag> (e.g. DIPC_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "buffer-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultBufferSize, cmdUtil.WrapString("Size in bytes of each receive buffer. Messages larger than this bypass the buffer pool"))

	key = "pool-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultPoolSize, cmdUtil.WrapString("Number of receive buffers to pre-allocate"))

	key = "max-workers"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxWorkers, cmdUtil.WrapString("Maximum number of commands handled concurrently"))

	key = "request-id-prefix"
	ServeCmd.PersistentFlags().String(key, common.DefaultRequestIDPrefix, cmdUtil.WrapString("Prefix for request ids generated by this peer. Must differ from the prefix used by the remote side"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Transport.BufferSize = viper.GetInt("buffer-size")
	serveCmdConfig.Transport.PoolSize = viper.GetInt("pool-size")
	serveCmdConfig.MaxWorkers = viper.GetInt("max-workers")
	serveCmdConfig.RequestIDPrefix = viper.GetString("request-id-prefix")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// demoService is the service exposed by the serve command.
type demoService struct{}

func (d *demoService) Echo(args struct {
	Message string `msgpack:"message"`
}) (string, error) {
	return args.Message, nil
}

func (d *demoService) Add(args struct {
	A float64 `msgpack:"a"`
	B float64 `msgpack:"b"`
}) (float64, error) {
	return args.A + args.B, nil
}

func (d *demoService) Sleep(args struct {
	Seconds float64 `msgpack:"seconds"`
}) (string, error) {
	time.Sleep(time.Duration(args.Seconds * float64(time.Second)))
	return fmt.Sprintf("slept %.2fs", args.Seconds), nil
}

func (d *demoService) MethodDocs() map[string]string {
	return map[string]string{
		"Echo":  "returns the message unchanged",
		"Add":   "adds two numbers",
		"Sleep": "blocks for the given number of seconds",
	}
}

// run starts the dIPC peer on stdin/stdout
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(serveCmdConfig.LogLevel)

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// stdout carries protocol frames, so all logging goes to stderr
	serv := server.NewPipeServer(os.Stdin, os.Stdout, s, *serveCmdConfig)
	if err := serv.Expose(&demoService{}); err != nil {
		return err
	}

	if err := serv.Start(); err != nil {
		return err
	}

	// block until the peer disconnects or sends shutdown/exit
	<-serv.Done()
	return serv.Close()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dipc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
