// File: main.go

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"geolocation-client/pkg/clock"
	"geolocation-client/pkg/database"
	"geolocation-client/pkg/geodata"
	"geolocation-client/pkg/geolocation"
	"geolocation-client/pkg/models"
	"geolocation-client/pkg/transport"
)

var (
	debugFlag bool
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "geolocation-client",
	Short: "A client for IP-based geolocation and clock synchronization",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set up logging based on the debug flag
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
		slog.SetDefault(logger)
	},
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Look up the geolocation of this host's public IP",
	Long: `Look up geolocation and timezone data for the current public IP.
With --set-time the process clock and timezone are reconciled against the
response. With --save the result is stored in the database.`,
	Run: func(cmd *cobra.Command, args []string) {
		setTime, _ := cmd.Flags().GetBool("set-time")
		save, _ := cmd.Flags().GetBool("save")
		language, _ := cmd.Flags().GetString("lang")
		timeoutMs, _ := cmd.Flags().GetInt("timeout")

		driver, err := newDriver()
		if err != nil {
			logger.Error("Error creating driver", "error", err)
			os.Exit(1)
		}

		result, ok := driver.GetLocation(setTime, language, time.Duration(timeoutMs)*time.Millisecond)
		if !ok {
			logger.Error("Geolocation request failed", "error", driver.Err().String())
			os.Exit(1)
		}

		fmt.Println(result.String())
		logger.Debug("Request finished", "took", driver.LastExecutionTime())

		if save {
			db, err := initDB()
			if err != nil {
				logger.Error("Error initializing database", "error", err)
				os.Exit(1)
			}
			defer db.Close()

			record := models.LocationFromResult(driver.SessionID(), result, driver.LastExecutionTime())
			if err := db.InsertLocation(context.Background(), record); err != nil {
				logger.Error("Error saving location", "error", err)
				os.Exit(1)
			}
			logger.Info("Location saved", "session", driver.SessionID())
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run one lookup non-blockingly, reporting every state transition",
	Run: func(cmd *cobra.Command, args []string) {
		setTime, _ := cmd.Flags().GetBool("set-time")
		language, _ := cmd.Flags().GetString("lang")

		driver, err := newDriver()
		if err != nil {
			logger.Error("Error creating driver", "error", err)
			os.Exit(1)
		}

		driver.OnProgress(func(state geodata.State, progress int) {
			logger.Info("Progress", "state", state.String(), "progress", progress)
		})

		done := false
		driver.OnComplete(func(result geodata.Result, errKind geodata.RequestError) {
			done = true
			if errKind != geodata.ErrNone {
				logger.Error("Request failed", "error", errKind.String())
				return
			}
			fmt.Println(result.String())
		})

		if !driver.Begin(setTime, language) {
			logger.Error("Could not start request", "error", driver.Err().String())
			os.Exit(1)
		}

		for !done && driver.IsRunning() {
			driver.Tick()
			time.Sleep(10 * time.Millisecond)
		}

		if driver.Err() != geodata.ErrNone {
			os.Exit(1)
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [limit]",
	Short: "Show recently saved locations",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit := 10
		if len(args) == 1 {
			var err error
			limit, err = strconv.Atoi(args[0])
			if err != nil {
				logger.Error("Invalid limit value", "error", err)
				os.Exit(1)
			}
		}
		ip, _ := cmd.Flags().GetString("ip")

		db, err := initDB()
		if err != nil {
			logger.Error("Error initializing database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		var locations []models.Location
		if ip != "" {
			loc, err := db.LastLocationForIP(context.Background(), ip)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					logger.Info("No saved location for IP", "ip", ip)
					return
				}
				logger.Error("Error querying location", "error", err)
				os.Exit(1)
			}
			locations = []models.Location{*loc}
		} else {
			locations, err = db.RecentLocations(context.Background(), limit)
			if err != nil {
				logger.Error("Error listing locations", "error", err)
				os.Exit(1)
			}
		}

		for _, loc := range locations {
			fmt.Printf("%s  %-15s  %s, %s  %s (UTC%+d)  %.4f,%.4f\n",
				loc.CreatedAt.Format(time.RFC3339), loc.IP,
				loc.City, loc.Country,
				loc.Timezone, loc.UTCOffset/3600,
				loc.Latitude, loc.Longitude)
		}
	},
}

func newDriver() (*geolocation.Driver, error) {
	client, err := transport.NewStreamClient(viper.GetString("transport"), logger)
	if err != nil {
		return nil, fmt.Errorf("error creating transport: %w", err)
	}

	reconciler := clock.NewReconciler(clock.NewSystemClock(), logger)

	driver := geolocation.New(client, transport.NewInterfaceLinkChecker(), reconciler, logger)
	driver.SetEndpoint(viper.GetString("api.host"), viper.GetInt("api.port"))
	if ms := viper.GetInt("api.timeout_ms"); ms > 0 {
		driver.SetTimeout(time.Duration(ms) * time.Millisecond)
	}

	return driver, nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")

	locateCmd.Flags().Bool("set-time", false, "Reconcile the process clock against the response")
	locateCmd.Flags().Bool("save", false, "Store the result in the database")
	locateCmd.Flags().String("lang", "", "Two-letter response language code")
	locateCmd.Flags().Int("timeout", 10000, "Blocking-call timeout in milliseconds")

	watchCmd.Flags().Bool("set-time", false, "Reconcile the process clock against the response")
	watchCmd.Flags().String("lang", "", "Two-letter response language code")

	historyCmd.Flags().String("ip", "", "Show only the most recent record for this IP")

	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.geolocation-client")
	viper.AddConfigPath("/etc/geolocation-client/")

	viper.SetDefault("api.host", geolocation.DefaultHost)
	viper.SetDefault("api.port", geolocation.DefaultPort)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func initDB() (*database.DB, error) {
	db, err := database.NewDB()
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	err = db.InitSchema(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
