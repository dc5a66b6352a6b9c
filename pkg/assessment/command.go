package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/archive"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/catalog"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/client"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/db"
	"github.com/kaytu-io/kaytu-assessor/pkg/azure"
	"github.com/kaytu-io/kaytu-assessor/pkg/config"
	"github.com/kaytu-io/kaytu-assessor/pkg/httpserver"
	"github.com/kaytu-io/kaytu-assessor/pkg/internal/postgres"
	"github.com/kaytu-io/kaytu-assessor/pkg/jq"
	"github.com/kaytu-io/kaytu-assessor/pkg/progress"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "assessor"

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessment-service",
		Short: "Compliance assessment service",
	}
	cmd.AddCommand(ServerCommand(), VerifyCertificateCommand(), ListTenantsCommand())
	return cmd
}

func ServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the assessment http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cnf, err := config.Load(serviceName, DefaultConfig())
			if err != nil {
				return err
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return start(ctx, logger, cnf)
		},
	}
}

func VerifyCertificateCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "verify-certificate",
		Short: "Verify the hash of a certificate document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			content, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var cert api.ComplianceCertificate
			if err := json.Unmarshal(content, &cert); err != nil {
				return fmt.Errorf("failed to decode certificate: %w", err)
			}
			if !VerifyCertificate(&cert) {
				return fmt.Errorf("certificate %s failed verification", cert.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "certificate %s (serial %d) is valid until %s\n",
				cert.ID, cert.SerialNumber, cert.ExpiresAt.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the certificate json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func ListTenantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tenants",
		Short: "List the Azure subscriptions the configured credential can assess",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cnf, err := config.Load(serviceName, DefaultConfig())
			if err != nil {
				return err
			}
			cred, err := azure.NewCredential(cnf.Azure)
			if err != nil {
				return err
			}
			subscriptions, err := azure.ListSubscriptions(cmd.Context(), cred)
			if err != nil {
				return err
			}
			for _, sub := range subscriptions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", sub.ID, sub.State, sub.Name)
			}
			return nil
		},
	}
}

func newCatalog(cnf CatalogConfig) (ControlCatalog, error) {
	switch {
	case cnf.Service.BaseURL != "":
		return client.NewCatalogClient(cnf.Service.BaseURL), nil
	case cnf.Directory != "":
		return catalog.LoadDirectory(cnf.Directory)
	default:
		return catalog.Default()
	}
}

func newArchiver(ctx context.Context, logger *zap.Logger, cnf Config, cred azcore.TokenCredential) (EvidenceArchiver, error) {
	var archivers archive.Multi
	if cnf.AzBlob.AccountURL != "" {
		blobClient, err := archive.NewBlobClient(cnf.AzBlob, cred)
		if err != nil {
			return nil, err
		}
		archivers = append(archivers, archive.NewBlobArchiver(logger, blobClient, cnf.AzBlob.Container))
	}
	if cnf.S3.Bucket != "" {
		s3Client, err := archive.NewS3Client(ctx, cnf.S3)
		if err != nil {
			return nil, err
		}
		archivers = append(archivers, archive.NewS3Archiver(logger, s3Client, cnf.S3.Bucket, cnf.S3.Prefix))
	}
	if len(archivers) == 0 {
		return nil, nil
	}
	return archivers, nil
}

func start(ctx context.Context, logger *zap.Logger, cnf Config) error {
	orm, err := postgres.NewClient(cnf.Postgres, logger)
	if err != nil {
		return fmt.Errorf("new postgres client: %w", err)
	}
	store := db.NewDatabase(orm)
	if err := store.Initialize(); err != nil {
		return err
	}
	logger.Info("connected to the postgres database", zap.String("database", cnf.Postgres.DB))

	cred, err := azure.NewCredential(cnf.Azure)
	if err != nil {
		return err
	}
	cache, err := NewResourceCache(logger, azure.NewInventory(logger, cred), cnf.Cache.MaxTenants, WithCacheTTL(cnf.Cache.TTL))
	if err != nil {
		return err
	}
	defer cache.Close()

	controls, err := newCatalog(cnf.Catalog)
	if err != nil {
		return fmt.Errorf("failed to load control catalog: %w", err)
	}

	archiver, err := newArchiver(ctx, logger, cnf, cred)
	if err != nil {
		return err
	}

	scanner := azure.NewScanner(cache, azure.DefaultRules(cnf.Scanner.AllowedLocations)...)
	collector := azure.NewCollector(logger, cache, controls)

	engine, err := New(logger, Dependencies{
		Cache:          cache,
		Catalog:        controls,
		Store:          store,
		Stig:           azure.NewStigValidator(cache, azure.DefaultStigRules()...),
		DefaultScanner: scanner,
		Scanners: map[string]Scanner{
			"CM": scanner,
		},
		DefaultCollector: collector,
		Collectors: map[string]EvidenceCollector{
			"AC": collector,
			"CM": collector,
		},
		Archiver: archiver,
	})
	if err != nil {
		return err
	}
	logger.Info("registered scanners", zap.Strings("families", engine.Scanners().Registered()))

	sinks := progress.Multi{progress.NewLoggingSink(logger)}
	if cnf.NATS.URL != "" {
		queue, err := jq.New(cnf.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer queue.Close()
		sinks = append(sinks, progress.NewNatsSink(logger, queue, cnf.NATS.Subject))
	}

	return httpserver.RegisterAndStart(ctx, logger, cnf.Http.Address, cnf.Tracing, NewHttpHandler(logger, engine, sinks))
}

var _ Store = db.Database{}
