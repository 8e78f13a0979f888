package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/atelier-commerce/atelier/internal/app"
	"github.com/atelier-commerce/atelier/jobs"
)

func runWarm(args []string) int {
	fs := flag.NewFlagSet("warm", flag.ContinueOnError)
	trees := fs.Bool("trees", true, "enqueue category tree and first-page warmup")
	popular := fs.Bool("popular", false, "enqueue popular-product refresh")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warm: load config: %v\n", err)
		return 1
	}

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warm: connect redis: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	if *trees {
		info, err := client.EnqueueCatalogWarmup(ctx, jobs.CatalogWarmupPayload{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warm: enqueue warmup: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s\n", jobs.TaskCatalogWarmup, info.ID)
	}
	if *popular {
		info, err := client.EnqueuePopularRefresh(ctx, jobs.PopularRefreshPayload{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warm: enqueue popular refresh: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s\n", jobs.TaskPopularRefresh, info.ID)
	}
	return 0
}
