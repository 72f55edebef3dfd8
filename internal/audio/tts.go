// Package audio renders spoken prompts (reminder announcements and step instructions)
// to MP3 files through Google Translate's text-to-speech endpoint.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	ttsRequestTimeout = 10 * time.Second
	defaultTTSURL     = "https://translate.google.com/translate_tts"

	// maxTextLength is the longest input the endpoint accepts in one request
	maxTextLength = 200
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// ReminderPhrase is the announcement spoken when an activity's reminder fires
func ReminderPhrase(activityName string) string {
	return fmt.Sprintf("It's time for: %s! Tap the green button when you have finished the activity", activityName)
}

// TTSService provides text-to-speech functionality
type TTSService struct {
	audioDir string
	baseURL  string
	language string
	enabled  bool
	client   *http.Client
}

// NewTTSService creates a TTS service writing into audioDir. A disabled service renders nothing.
func NewTTSService(audioDir, language string, enabled bool) *TTSService {
	if language == "" {
		language = "en"
	}
	return &TTSService{
		audioDir: audioDir,
		baseURL:  defaultTTSURL,
		language: language,
		enabled:  enabled,
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
}

// WithBaseURL points the service at another TTS endpoint
func (s *TTSService) WithBaseURL(u string) *TTSService {
	s.baseURL = u
	return s
}

// Enabled reports whether audio is rendered
func (s *TTSService) Enabled() bool {
	return s.enabled
}

// Render converts text to speech and saves it as <name>.mp3, reusing an existing file.
// It returns the filename (not the full path).
func (s *TTSService) Render(ctx context.Context, name, text string) (string, error) {
	if !s.enabled {
		return "", nil
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text to speak for %s", name)
	}

	filename := Filename(name)
	path := filepath.Join(s.audioDir, filename)

	if _, err := os.Stat(path); err == nil {
		return filename, nil
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := s.fetch(ctx, truncate(text), path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return filename, nil
}

// RenderReminder renders the reminder announcement for an activity
func (s *TTSService) RenderReminder(ctx context.Context, activityID, activityName string) (string, error) {
	return s.Render(ctx, "reminder_"+activityID, ReminderPhrase(activityName))
}

// RenderStep renders a step's speakable text
func (s *TTSService) RenderStep(ctx context.Context, activityID, stepID, text string) (string, error) {
	return s.Render(ctx, "step_"+activityID+"_"+stepID, text)
}

// DeleteActivityAudio removes every file rendered for an activity
func (s *TTSService) DeleteActivityAudio(activityID string) error {
	prefixes := []string{Filename("reminder_" + activityID), strings.TrimSuffix(Filename("step_"+activityID), ".mp3") + "_"}

	files, err := os.ReadDir(s.audioDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read audio directory: %w", err)
	}

	for _, file := range files {
		name := file.Name()
		if file.IsDir() || filepath.Ext(name) != ".mp3" {
			continue
		}
		if name == prefixes[0] || strings.HasPrefix(name, prefixes[1]) {
			if err := os.Remove(filepath.Join(s.audioDir, name)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

// Filename sanitizes name into a safe .mp3 filename
func Filename(name string) string {
	sanitized := strings.ToLower(strings.TrimSpace(name))
	sanitized = strings.ReplaceAll(sanitized, " ", "_")
	sanitized = unsafeFilenameChars.ReplaceAllString(sanitized, "")
	return sanitized + ".mp3"
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTextLength {
		return text
	}
	return string(runes[:maxTextLength])
}

// fetch downloads the spoken text into outputPath
func (s *TTSService) fetch(ctx context.Context, text, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", s.language)
	params.Set("client", "tw-ob")
	params.Set("textlen", fmt.Sprintf("%d", len(text)))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// a partial download must never appear at outputPath
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".tts-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return os.Rename(tmp.Name(), outputPath)
}
