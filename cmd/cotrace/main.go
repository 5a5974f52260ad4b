// cotrace is an interactive console for growing, editing, and retrieving
// reasoning traces.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbucher/cotrace/internal/completion"
	"github.com/mbucher/cotrace/internal/config"
	"github.com/mbucher/cotrace/internal/memory"
	"github.com/mbucher/cotrace/internal/retrieval"
	"github.com/mbucher/cotrace/internal/session"
	"github.com/mbucher/cotrace/internal/store"
)

func main() {
	log.Println("cotrace - reasoning trace console")

	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using environment variables")
	} else {
		log.Println("[config] Loaded .env file")
	}

	dataDir := os.Getenv("COTRACE_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	cfg, err := config.Load(os.Getenv("COTRACE_CONFIG"))
	if err != nil {
		log.Printf("Warning: %v, using defaults", err)
	}

	mode := completion.Mode(os.Getenv("COTRACE_MODE"))
	if mode == "" {
		mode = completion.ModeDeepSeek
	}
	svc, err := completion.New(mode, completion.Options{
		APIKey:      os.Getenv("COTRACE_API_KEY"),
		BaseURL:     os.Getenv("COTRACE_BASE_URL"),
		OllamaModel: os.Getenv("COTRACE_OLLAMA_MODEL"),
	})
	if err != nil {
		log.Fatalf("Completion service: %v", err)
	}

	db, err := store.Open(dataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	engine := retrieval.New(svc, time.Duration(cfg.RetrievalTimeoutSeconds)*time.Second)
	sess := session.New(svc, db, cfg, mode)

	repl(sess, db, engine, dataDir)
}

func repl(sess *session.Session, db *store.DB, engine *retrieval.Engine, dataDir string) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println(`Commands: seed <text> | ask <text> | grow [text] | reflect [text] | dim | cut <k> | refine <text>
          show | query <text> | list | open <id> | export <path> | import <path> | quit`)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest := line, ""
		if i := strings.IndexByte(line, ' '); i >= 0 {
			cmd, rest = line[:i], strings.TrimSpace(line[i+1:])
		}

		switch cmd {
		case "quit", "exit":
			return
		case "seed":
			added, err := sess.SeedFromReasoning(ctx, rest)
			report(err, "seeded %d steps", added)
		case "ask":
			answer, err := sess.Ask(ctx, rest)
			report(err, "%s", answer)
		case "grow":
			added, err := sess.ContinueGrowth(ctx, rest)
			report(err, "merged %d nodes, cursor now %d", added, sess.Editor().Cursor())
		case "reflect":
			added, err := sess.Reflect(ctx, rest)
			report(err, "regenerated %d nodes", added)
		case "dim":
			sess.DimLast()
			fmt.Printf("cursor now %d\n", sess.Editor().Cursor())
		case "cut":
			k, convErr := strconv.Atoi(rest)
			if convErr != nil {
				fmt.Println("usage: cut <k>")
				continue
			}
			report(sess.CutFrom(k), "cut at %d", k)
		case "refine":
			report(sess.RefineLastBright(rest), "last bright node updated")
		case "show":
			showTrace(sess)
		case "query":
			runQuery(ctx, db, engine, rest)
		case "list":
			listSessions(db)
		case "open":
			openSession(sess, db, rest)
		case "export":
			report(memory.SaveTrace(rest, sess.Editor().Graph(), sess.Messages()), "exported to %s", rest)
		case "import":
			g, msgs, err := memory.LoadTrace(rest)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			sess.LoadGraph(g, msgs)
			fmt.Printf("imported %d nodes\n", g.Len())
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}
}

func report(err error, format string, args ...any) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf(format+"\n", args...)
}

func showTrace(sess *session.Session) {
	ed := sess.Editor()
	g := ed.Graph()
	if g.Len() == 0 {
		fmt.Println("(empty trace)")
		return
	}
	cursor := ed.Cursor()
	for i, n := range g.Nodes() {
		marker := " "
		if i < cursor {
			marker = "*"
		}
		fmt.Printf("%s %d [%s] %s\n", marker, n.ID, n.Kind, truncate(n.Text, 80))
	}
	fmt.Printf("cursor %d/%d, fully bright: %v\n", cursor, g.Len(), ed.IsFullyBright())
}

func runQuery(ctx context.Context, db *store.DB, engine *retrieval.Engine, query string) {
	labels, err := db.Labels()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	sessionID := engine.MatchQuery(ctx, query, labels)
	if sessionID == 0 {
		fmt.Println("no matching trace")
		return
	}
	fmt.Printf("matched session %d (use: open %d)\n", sessionID, sessionID)
}

func listSessions(db *store.DB) {
	sessions, err := db.Sessions()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, s := range sessions {
		fmt.Printf("%d [%s/%s] %d nodes: %s\n", s.ID, s.Mode, s.ModelName, s.NodeCount, truncate(s.Summary, 60))
	}
}

func openSession(sess *session.Session, db *store.DB, rest string) {
	sessionID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		fmt.Println("usage: open <session id>")
		return
	}
	g, err := db.LoadSession(sessionID)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	sess.LoadGraph(g, nil)
	fmt.Printf("opened session %d, %d nodes (linear order)\n", sessionID, g.Len())
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
