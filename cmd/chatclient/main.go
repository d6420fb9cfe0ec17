package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/thereayou/taskboard-chat/internal/apiclient"
	"github.com/thereayou/taskboard-chat/internal/chatsync"
	"github.com/thereayou/taskboard-chat/internal/config"
	"github.com/thereayou/taskboard-chat/internal/notifications"
	"github.com/thereayou/taskboard-chat/internal/wsclient"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var token string
	api := apiclient.New(cfg.APIURL, func() string { return token })

	login, err := api.Login(ctx, cfg.Email, cfg.Password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	token = login.Token

	ws, err := wsclient.Dial(ctx, cfg.WSURL, token)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer ws.Close()

	store, closeStore, err := notificationStore(ctx, cfg.NotifyRedisURL)
	if err != nil {
		return err
	}
	defer closeStore()

	dir := chatsync.NewDirectory(api, login.User.ID)
	stream := chatsync.NewStream(ws, api, login.User)
	inbox := notifications.NewInbox(store, login.User.ID)
	app := NewApp(dir, stream, inbox, os.Stdout)

	// Directory грузит список, ошибки уже залогированы
	_ = dir.Load(ctx, nil)
	dir.Attach(ws)
	inbox.Attach(ws)
	defer dir.Detach()
	defer inbox.Detach()
	defer stream.Close()

	for _, ev := range []chatproto.EventName{chatproto.EventNewMessage, chatproto.EventTaskReminder, chatproto.EventError} {
		ws.Subscribe(ev, app.HandleEvent)
	}

	fmt.Printf("Вошли как %s. /help для списка команд\n", login.User.Name())
	app.printRooms(dir.Rooms())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.Run(ctx)
	})
	g.Go(func() error {
		defer ws.Close()
		return readInput(ctx, app)
	})

	return g.Wait()
}

func readInput(ctx context.Context, app *App) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			more, err := app.Exec(ctx, line)
			if err != nil {
				log.Printf("Error: %v", err)
			}
			if !more {
				return nil
			}
		}
	}
}

// notificationStore Redis, если задан NOTIFY_REDIS_URL, иначе память процесса
func notificationStore(ctx context.Context, url string) (notifications.Store, func(), error) {
	if url == "" {
		return notifications.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid NOTIFY_REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("notification redis: %w", err)
	}

	return notifications.NewRedisStore(rdb), func() { rdb.Close() }, nil
}
