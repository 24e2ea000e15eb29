package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vape-market/internal/ad"
	"vape-market/internal/app"
	"vape-market/internal/localcache"
	"vape-market/internal/market"
	"vape-market/internal/remote"
	"vape-market/internal/syncer"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const usage = `usage: marketctl [-config path] <command> [flags]

commands:
  list     [-user id] [-q query]     show ads (server, cache on failure)
  publish  -seller -title -price -category [-description] [-name]
  delete   -ad -user
  rate     -seller -user -rating
  ratings                            show the seller rating map
  sync                               merge cache slot with server
  status                             check server availability
  watch    [-interval 30s]           reload ads periodically
`

var errUsage = errors.New("invalid usage")

type cli struct {
	client  *remote.Client
	service *market.Service
	out     io.Writer
}

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to YAML config")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := zapLogger.Sugar()
	defer func() { _ = zapLogger.Sync() }()

	c, err := app.NewConfig(*cfgPath)
	if err != nil {
		logger.Fatalf("error to parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     c.CfgRedis.Addr,
		Password: c.CfgRedis.Password,
		DB:       c.CfgRedis.DB,
	})
	defer redisClient.Close()

	client := remote.NewClient(c.CfgClient.BaseURL, c.CfgClient.APIPath, c.CfgClient.Timeout, logger)
	slot := localcache.NewRedisSlot(redisClient, c.CfgCache.Key, c.CfgCache.Capacity, logger)
	engine := syncer.NewEngine(client, syncer.MergeMode(c.CfgSync.RatingMerge), logger)

	cmd := &cli{
		client:  client,
		service: market.NewService(client, slot, engine, logger),
		out:     os.Stdout,
	}

	err = cmd.run(ctx, flag.Arg(0), flag.Args()[1:], c.CfgSync.WatchInterval)
	if errors.Is(err, errUsage) {
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("%s failed: %v", flag.Arg(0), err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, command string, args []string, watchInterval time.Duration) error {
	switch command {
	case "list":
		return c.list(ctx, args)
	case "publish":
		return c.publish(ctx, args)
	case "delete":
		return c.delete(ctx, args)
	case "rate":
		return c.rate(ctx, args)
	case "ratings":
		ratings, err := c.client.FetchRatings(ctx)
		if err != nil {
			return err
		}
		return c.print(ratings)
	case "sync":
		return c.print(c.service.Sync(ctx))
	case "status":
		return c.print(c.service.Status(ctx))
	case "watch":
		return c.watch(ctx, args, watchInterval)
	default:
		return errUsage
	}
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	userID := fs.String("user", "", "show ads of one seller")
	query := fs.String("q", "", "full-text search query")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	switch {
	case *query != "":
		ads, err := c.client.SearchAds(ctx, *query)
		if err != nil {
			return err
		}
		return c.print(ads)
	case *userID != "":
		ads, err := c.client.FetchUserAds(ctx, *userID)
		if err != nil {
			return err
		}
		return c.print(ads)
	default:
		res, err := c.service.Load(ctx)
		if err != nil {
			return err
		}
		return c.print(res)
	}
}

func (c *cli) publish(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	var a ad.Ad
	fs.StringVar(&a.SellerID, "seller", "", "seller id")
	fs.StringVar(&a.SellerName, "name", "", "seller display name")
	fs.StringVar(&a.Title, "title", "", "ad title")
	fs.StringVar(&a.Description, "description", "", "ad description")
	fs.Float64Var(&a.Price, "price", 0, "price")
	fs.StringVar(&a.Category, "category", "", "category")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	res, err := c.service.Publish(ctx, a)
	if err != nil {
		return err
	}

	return c.print(res)
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	adID := fs.String("ad", "", "ad id")
	userID := fs.String("user", "", "owner id")
	if err := fs.Parse(args); err != nil || *adID == "" || *userID == "" {
		return errUsage
	}

	if err := c.service.Delete(ctx, *adID, *userID); err != nil {
		return err
	}

	return c.print(map[string]string{"deleted": *adID})
}

func (c *cli) rate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rate", flag.ContinueOnError)
	sellerID := fs.String("seller", "", "seller id")
	userID := fs.String("user", "", "rater id")
	value := fs.Int("rating", 0, "rating value")
	if err := fs.Parse(args); err != nil || *sellerID == "" || *userID == "" || *value == 0 {
		return errUsage
	}

	if err := c.service.Rate(ctx, *sellerID, *userID, *value); err != nil {
		return err
	}

	return c.print(map[string]interface{}{"sellerId": *sellerID, "userId": *userID, "rating": *value})
}

func (c *cli) watch(ctx context.Context, args []string, defaultInterval time.Duration) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", defaultInterval, "reload interval")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	return c.service.Watch(ctx, *interval, func(res market.LoadResult, err error) {
		if err != nil {
			fmt.Fprintf(c.out, "%s reload failed: %v\n", time.Now().Format(time.RFC3339), err)
			return
		}
		fmt.Fprintf(c.out, "%s %d ads from %s\n", time.Now().Format(time.RFC3339), len(res.Ads), res.Source)
	})
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
