package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docqa-orchestrator/internal/domain"
)

var (
	version = "dev"

	// Global flags
	serverURL string
	locale    string

	// ask/draft flags
	documentRefs []string
	maxTokens    int

	// chunk flags
	outPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "askctl",
	Short:   "Query the document QA orchestrator from the command line",
	Version: version,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the scoped documents",
	Long: `Ask a question against the scoped documents.

Examples:
  # Ask against two uploaded documents
  askctl ask "最新の衝突安全基準は？" --doc public/regulation_2026.md --doc public/door_trim_plan.md

  # Ask in English
  askctl ask "What does the current BOM say about door trim?" --locale en --doc public/current_bom.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var draftCmd = &cobra.Command{
	Use:   "draft [topic]",
	Short: "Draft a structured document about a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraft,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [markdown file]",
	Short: "Chunk a local markdown file into a chunk payload",
	Long: `Chunk a local markdown file into the JSON payload the chunk store serves.

The output file name follows the store convention: the extension is
replaced with _chunks.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "orchestrator base URL")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "answer language (defaults to server setting)")

	askCmd.Flags().StringArrayVar(&documentRefs, "doc", nil, "document reference to scope retrieval (repeatable)")
	askCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "generation token cap (0 = server default)")

	draftCmd.Flags().StringArrayVar(&documentRefs, "doc", nil, "document reference to scope retrieval (repeatable)")
	draftCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "generation token cap (0 = server default)")

	chunkCmd.Flags().StringVar(&outPath, "out", "", "output path (defaults next to the input)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(chunkCmd)
}

type answerResponse struct {
	Answer    string `json:"answer"`
	Citations []struct {
		Number      int    `json:"number"`
		DisplayName string `json:"display_name"`
		URL         string `json:"url"`
	} `json:"citations"`
	Sources   []string `json:"sources"`
	RequestID string   `json:"request_id"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	payload := map[string]interface{}{
		"query": args[0],
	}
	if len(documentRefs) > 0 {
		payload["document_refs"] = documentRefs
	}
	if locale != "" {
		payload["locale"] = locale
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}

	var resp answerResponse
	if err := postJSON(serverURL+"/v1/answer", payload, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	return nil
}

func runDraft(cmd *cobra.Command, args []string) error {
	if len(documentRefs) == 0 {
		return fmt.Errorf("at least one --doc is required")
	}

	payload := map[string]interface{}{
		"topic":         args[0],
		"document_refs": documentRefs,
	}
	if locale != "" {
		payload["locale"] = locale
	}
	if maxTokens > 0 {
		payload["max_tokens"] = maxTokens
	}

	var resp struct {
		Document  string `json:"document"`
		RequestID string `json:"request_id"`
	}
	if err := postJSON(serverURL+"/v1/draft", payload, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Document)
	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	inPath := args[0]
	body, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}

	source := filepath.Base(inPath)
	fragments, err := domain.NewMarkdownChunker().Chunk(source, string(body))
	if err != nil {
		return fmt.Errorf("failed to chunk %s: %w", inPath, err)
	}

	data, err := domain.EncodeChunkPayload(fragments)
	if err != nil {
		return err
	}

	out := outPath
	if out == "" {
		ext := filepath.Ext(inPath)
		out = strings.TrimSuffix(inPath, ext) + "_chunks.json"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("wrote %d fragments to %s\n", len(fragments), out)
	return nil
}

func postJSON(url string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
