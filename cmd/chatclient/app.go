package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/thereayou/taskboard-chat/internal/chatsync"
	"github.com/thereayou/taskboard-chat/internal/notifications"
	"github.com/thereayou/taskboard-chat/pkg/chatproto"
)

const helpText = `Команды:
  /rooms            список комнат
  /search <текст>   поиск комнаты по имени
  /open <номер>     открыть комнату из последнего списка
  /close            закрыть комнату
  /notifications    напоминания о задачах
  /read             отметить напоминания прочитанными
  /quit             выход
Любой другой текст отправляется в открытую комнату.`

type App struct {
	dir    *chatsync.Directory
	stream *chatsync.Stream
	inbox  *notifications.Inbox
	out    io.Writer
	now    func() time.Time

	// Последний показанный список, /open ссылается на его номера
	listed []chatsync.Room
}

func NewApp(dir *chatsync.Directory, stream *chatsync.Stream, inbox *notifications.Inbox, out io.Writer) *App {
	return &App{dir: dir, stream: stream, inbox: inbox, out: out, now: time.Now}
}

// parseCommand делит строку на команду и аргумент. Для обычного текста
// команда пустая.
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// Exec выполняет одну строку ввода. Возвращает false на /quit.
func (a *App) Exec(ctx context.Context, line string) (bool, error) {
	cmd, arg := parseCommand(line)

	switch cmd {
	case "":
		if arg == "" {
			return true, nil
		}
		return true, a.stream.Send(arg)

	case "/quit", "/exit":
		return false, nil

	case "/help":
		fmt.Fprintln(a.out, helpText)

	case "/rooms":
		a.printRooms(a.dir.Rooms())

	case "/search":
		a.printRooms(a.dir.Search(arg))

	case "/open":
		return true, a.open(ctx, arg)

	case "/close":
		a.stream.Close()
		a.dir.Deselect()

	case "/notifications":
		return true, a.printNotifications(ctx)

	case "/read":
		return true, a.inbox.MarkRead(ctx, "")

	default:
		fmt.Fprintf(a.out, "Неизвестная команда %s, /help для списка\n", cmd)
	}

	return true, nil
}

func (a *App) open(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(a.listed) {
		fmt.Fprintln(a.out, "Укажите номер комнаты из /rooms")
		return nil
	}

	room, ok := a.dir.Select(a.listed[n-1].ID)
	if !ok {
		fmt.Fprintln(a.out, "Комната больше недоступна")
		return nil
	}

	fmt.Fprintf(a.out, "== %s ==\n", room.DisplayName)
	if err := a.stream.Open(ctx, &room.Room); err != nil {
		return err
	}

	if a.stream.Empty() {
		fmt.Fprintln(a.out, "Сообщений пока нет")
	}
	for _, m := range a.stream.Messages() {
		a.PrintMessage(m)
	}
	return nil
}

func (a *App) printRooms(rooms []chatsync.Room) {
	a.listed = rooms
	if len(rooms) == 0 {
		fmt.Fprintln(a.out, "Комнат нет")
		return
	}
	for i, r := range rooms {
		fmt.Fprintln(a.out, formatRoom(i+1, r, a.now()))
	}
}

func formatRoom(n int, r chatsync.Room, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%2d. %s", n, r.DisplayName)

	if r.Type == chatproto.RoomDirect && r.Online {
		b.WriteString(" ●")
	}
	if badge := chatsync.UnreadBadge(r.UnreadCount); badge != "" {
		fmt.Fprintf(&b, " [%s]", badge)
	}
	if r.LastMessage != nil {
		fmt.Fprintf(&b, " | %s (%s)", r.LastMessage.Content, chatsync.FormatRelative(r.LastMessage.CreatedAt, now))
	}
	return b.String()
}

func (a *App) printNotifications(ctx context.Context) error {
	items, err := a.inbox.List(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Напоминаний нет")
		return nil
	}
	for _, n := range items {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %s, срок %s\n", mark, n.Title, n.DueAt.Local().Format("02.01 15:04"))
	}
	return nil
}

// PrintMessage печатает сообщение ленты
func (a *App) PrintMessage(m chatproto.Message) {
	status := ""
	if m.Pending() {
		status = " …"
	}
	fmt.Fprintf(a.out, "[%s] %s: %s%s\n", m.CreatedAt.Local().Format("15:04"), m.User.Name(), m.Content, status)
}

// HandleEvent выводит живые события поверх ввода
func (a *App) HandleEvent(ev chatproto.Event) {
	switch e := ev.(type) {
	case *chatproto.NewMessage:
		room := a.stream.Room()
		if room != nil && room.ID == e.Message.RoomID {
			a.PrintMessage(e.Message)
		}
	case *chatproto.TaskReminder:
		fmt.Fprintf(a.out, "! Напоминание: %s\n", e.Title)
	case *chatproto.ErrorEvent:
		fmt.Fprintf(a.out, "! Ошибка сервера: %s\n", e.Message)
	}
}
