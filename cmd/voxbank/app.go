package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/adapter/audio"
	authclient "github.com/seu-repo/voxbank/internal/adapter/auth"
	bankingclient "github.com/seu-repo/voxbank/internal/adapter/banking"
	dialogueclient "github.com/seu-repo/voxbank/internal/adapter/dialogue"
	"github.com/seu-repo/voxbank/internal/adapter/realtime"
	"github.com/seu-repo/voxbank/internal/adapter/session"
	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxbank/internal/ports"
	"github.com/seu-repo/voxbank/internal/service/assistant"
	"github.com/seu-repo/voxbank/internal/service/authflow"
	"github.com/seu-repo/voxbank/internal/service/slots"
	"github.com/seu-repo/voxbank/internal/service/turn"
	"github.com/seu-repo/voxbank/pkg/config"
)

// App wires the voice banking client together and drives the interactive
// session.
type App struct {
	cfg *config.Config
	log *zap.Logger

	store      *session.Store
	auth       *authclient.Client
	banking    *bankingclient.Client
	recorder   *audio.Recorder
	speaker    *audio.Speaker
	turns      *turn.Service
	reconciler *slots.Reconciler
	channel    *realtime.Channel
	assistant  *assistant.Assistant

	micSource *audio.MicSource
	scanner   *bufio.Scanner

	// Transfer form, fillable by hand or by voice
	formAmount    string
	formRecipient string
}

// NewApp builds every adapter and service from configuration
func NewApp(cfg *config.Config, noAudio bool, log *zap.Logger) (*App, error) {
	app := &App{
		cfg:     cfg,
		log:     log,
		scanner: bufio.NewScanner(os.Stdin),
	}

	// 1. Session store: tokens live here for the process lifetime
	app.store = session.NewStore(log)

	// 2. Breaker-protected HTTP clients, one breaker per collaborator
	breakerSettings := circuitbreaker.Settings{
		MaxRequests:      cfg.CircuitBreaker.MaxRequests,
		Interval:         cfg.CircuitBreaker.Interval,
		Timeout:          cfg.CircuitBreaker.Timeout,
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
	}
	newHTTPClient := func(name string) *circuitbreaker.HTTPClient {
		settings := breakerSettings
		settings.Name = name
		return circuitbreaker.NewHTTPClientWithSettings(settings, cfg.API.Timeout, log)
	}

	app.auth = authclient.NewClient(cfg.API.BaseURL, newHTTPClient("auth"), log)
	app.banking = bankingclient.NewClient(cfg.API.BaseURL, newHTTPClient("banking"), app.store, log)
	dialogue := dialogueclient.NewClient(cfg.API.BaseURL, newHTTPClient("dialogue"), app.store, log)

	// 3. Audio capture and playback
	if !noAudio {
		app.micSource = audio.NewMicSource(audio.CaptureConfig{
			SampleRate: cfg.Audio.CaptureSampleRate,
			Channels:   cfg.Audio.CaptureChannels,
		}, log)
		app.recorder = audio.NewRecorder(app.micSource, log)
		app.speaker = audio.NewSpeaker(audio.PlaybackConfig{
			SampleRate:   cfg.Audio.PlaybackSampleRate,
			ChannelCount: cfg.Audio.PlaybackChannels,
		}, log)
	}

	// 4. Slot routing into the transfer form
	app.reconciler = slots.NewReconciler(log)
	app.reconciler.Register("", slots.SlotAmount, func(value string) {
		app.formAmount = value
		fmt.Printf("  [form] amount = %s\n", value)
	})
	app.reconciler.Register("", slots.SlotCounterparty, func(value string) {
		app.formRecipient = value
		fmt.Printf("  [form] recipient = %s\n", value)
	})

	// 5. One-shot voice turns
	var player ports.SpeechPlayer
	if app.speaker != nil {
		player = app.speaker
	}
	app.turns = turn.NewService(dialogue, player, app.reconciler, log)

	// 6. Realtime assistant channel
	app.channel = realtime.NewChannel(realtime.Options{
		URL:              cfg.Realtime.SocketURL,
		Tokens:           app.store,
		BaseDelay:        cfg.Realtime.ReconnectBaseDelay,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		Logger:           log,
	})
	app.assistant = assistant.NewAssistant(app.channel, player, cfg.Dialogue.Language, log)

	return app, nil
}

// Close releases audio devices and tears the realtime session down
func (a *App) Close() {
	if a.assistant != nil {
		a.assistant.Close()
	}
	if a.recorder != nil {
		a.recorder.Abort()
	}
	if a.micSource != nil {
		_ = a.micSource.Close()
	}
	a.store.Clear()
}

// RunInteractive runs the command loop until quit or EOF
func (a *App) RunInteractive() {
	fmt.Print("> ")

	for a.scanner.Scan() {
		line := strings.TrimSpace(a.scanner.Text())
		parts := strings.Fields(line)

		if len(parts) == 0 {
			fmt.Print("> ")
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			a.printHelp()

		case "login":
			a.cmdLogin(args)

		case "logout":
			a.store.Clear()
			fmt.Println("Logged out")

		case "fill":
			a.cmdFill(args)

		case "form":
			fmt.Printf("  amount:    %s\n", orDash(a.formAmount))
			fmt.Printf("  recipient: %s\n", orDash(a.formRecipient))

		case "transfer":
			a.cmdTransfer()

		case "enroll":
			a.cmdEnroll()

		case "verify":
			a.cmdVerify(args)

		case "ask":
			a.cmdAsk(args)

		case "assistant":
			a.cmdAssistant(args)

		case "history":
			a.cmdHistory()

		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}

		fmt.Print("> ")
	}
}

func (a *App) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  login <username>        - Log in with password, OTP and voice")
	fmt.Println("  logout                  - Drop the current session")
	fmt.Println("  fill amount|recipient   - Fill a transfer field by voice")
	fmt.Println("  form                    - Show the transfer form")
	fmt.Println("  transfer                - Initiate and confirm the transfer")
	fmt.Println("  enroll                  - Enroll your voiceprint")
	fmt.Println("  verify [otp]            - Verify a voice sample")
	fmt.Println("  ask [context]           - One-shot voice question")
	fmt.Println("  assistant start|say|stop - Hands-free assistant session")
	fmt.Println("  history                 - Show the assistant transcript")
	fmt.Println("  quit                    - Exit")
}

func (a *App) cmdLogin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: login <username>")
		return
	}
	username := args[0]
	password := a.prompt("Password: ")

	machine := authflow.NewLoginMachine(a.auth, a.log)
	ctx := context.Background()

	if err := machine.InitLogin(ctx, domain.LoginParams{Username: username, Password: password}); err != nil {
		fmt.Printf("Login failed: %s\n", domain.Reason(err))
		return
	}
	fmt.Println("Credentials accepted; OTP sent.")

	otp := a.prompt("OTP: ")
	if err := machine.SupplyOTP(otp); err != nil {
		fmt.Printf("Bad OTP input: %v\n", err)
		return
	}

	voice, err := a.recordUtterance("Speak your verification phrase")
	if err != nil {
		fmt.Printf("Recording failed: %v\n", err)
		return
	}
	if err := machine.SupplyVoice(voice); err != nil {
		fmt.Printf("Bad voice input: %v\n", err)
		return
	}

	result, err := machine.Confirm(ctx)
	if err != nil {
		fmt.Printf("Verification failed: %s\n", domain.Reason(err))
		return
	}

	a.store.Save(machine.SessionID(), *result.Tokens)
	fmt.Printf("Logged in as %s\n", username)
}

func (a *App) cmdFill(args []string) {
	if len(args) < 1 || (args[0] != "amount" && args[0] != "recipient") {
		fmt.Println("Usage: fill amount|recipient")
		return
	}

	fieldContext := args[0]
	voice, err := a.recordUtterance("Speak the " + fieldContext)
	if err != nil {
		fmt.Printf("Recording failed: %v\n", err)
		return
	}

	_, err = a.turns.SendTurn(context.Background(), domain.VoiceTurnRequest{
		Audio:    voice,
		Language: a.cfg.Dialogue.Language,
		Context:  fieldContext,
	}, turn.Hooks{
		OnTranscript: func(t string) { fmt.Printf("  heard: %q\n", t) },
		OnMessage:    func(m string) { fmt.Printf("  assistant: %s\n", m) },
	})
	if err != nil {
		fmt.Printf("Voice turn failed: %s\n", domain.Reason(err))
	}
}

func (a *App) cmdTransfer() {
	if !a.store.Active() {
		fmt.Println("Log in first")
		return
	}
	if a.formAmount == "" || a.formRecipient == "" {
		fmt.Println("Fill amount and recipient first (fill amount / fill recipient)")
		return
	}

	amount, err := strconv.ParseFloat(a.formAmount, 64)
	if err != nil {
		fmt.Printf("Bad amount %q\n", a.formAmount)
		return
	}

	machine := authflow.NewTransferMachine(a.banking, a.auth, a.store.UserID(), a.log)
	ctx := context.Background()

	err = machine.InitTransfer(ctx, domain.TransferParams{
		Amount:       amount,
		Counterparty: a.formRecipient,
		Channel:      "UPI",
	})
	if err != nil {
		fmt.Printf("Transfer init failed: %s\n", domain.Reason(err))
		return
	}

	fmt.Printf("Review: send %.2f to %s [session %s]\n", amount, a.formRecipient, machine.SessionID())
	if a.prompt("Proceed? (y/n): ") != "y" {
		fmt.Println("Cancelled (server session left to expire)")
		return
	}

	if machine.State() == domain.StateAwaitingMFA {
		otp := a.prompt("OTP: ")
		if err := machine.SupplyOTP(otp); err != nil {
			fmt.Printf("Bad OTP input: %v\n", err)
			return
		}
		if a.recorder != nil {
			voice, err := a.recordUtterance("Speak to verify your voice (optional, Enter to skip)")
			if err == nil && !voice.Empty() {
				_ = machine.SupplyVoice(voice)
			}
		}
	}

	result, err := machine.Confirm(ctx)
	if err != nil {
		fmt.Printf("Transfer failed: %s\n", domain.Reason(err))
		return
	}

	fmt.Printf("Transfer successful! Transaction ID: %s\n", result.ConfirmationID)
	a.formAmount = ""
	a.formRecipient = ""
}

func (a *App) cmdEnroll() {
	if !a.store.Active() {
		fmt.Println("Log in first")
		return
	}

	voice, err := a.recordUtterance("Speak your enrollment phrase")
	if err != nil {
		fmt.Printf("Recording failed: %v\n", err)
		return
	}

	if err := a.auth.EnrollVoice(context.Background(), a.store.UserID(), voice); err != nil {
		fmt.Printf("Enrollment failed: %s\n", domain.Reason(err))
		return
	}
	fmt.Println("Voiceprint enrolled")
}

func (a *App) cmdVerify(args []string) {
	if !a.store.Active() {
		fmt.Println("Log in first")
		return
	}

	otp := ""
	if len(args) > 0 {
		otp = args[0]
	}

	voice, err := a.recordUtterance("Speak your verification phrase")
	if err != nil {
		fmt.Printf("Recording failed: %v\n", err)
		return
	}

	result, err := a.auth.VerifyVoice(context.Background(), a.store.UserID(), voice, otp)
	if err != nil {
		fmt.Printf("Verification failed: %s\n", domain.Reason(err))
		return
	}
	if result.Verified {
		fmt.Println("Voice verified")
	} else {
		fmt.Printf("Voice rejected: %s\n", result.Detail)
	}
}

func (a *App) cmdAsk(args []string) {
	turnContext := ""
	if len(args) > 0 {
		turnContext = args[0]
	}

	voice, err := a.recordUtterance("Ask your question")
	if err != nil {
		fmt.Printf("Recording failed: %v\n", err)
		return
	}

	_, err = a.turns.SendTurn(context.Background(), domain.VoiceTurnRequest{
		Audio:    voice,
		Language: a.cfg.Dialogue.Language,
		Context:  turnContext,
	}, turn.Hooks{
		OnTranscript: func(t string) { fmt.Printf("  you: %s\n", t) },
		OnMessage:    func(m string) { fmt.Printf("  assistant: %s\n", m) },
	})
	if err != nil {
		fmt.Printf("Voice turn failed: %s\n", domain.Reason(err))
	}
}

func (a *App) cmdAssistant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: assistant start|say|stop")
		return
	}

	switch args[0] {
	case "start":
		if !a.store.Active() {
			fmt.Println("Log in first")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.assistant.Start(ctx, a.store.UserID()); err != nil {
			fmt.Printf("Assistant failed to start: %v\n", err)
			return
		}
		fmt.Println("Assistant session started")

	case "say":
		voice, err := a.recordUtterance("Speak to the assistant")
		if err != nil {
			fmt.Printf("Recording failed: %v\n", err)
			return
		}
		if err := a.assistant.SendAudio(voice); err != nil {
			fmt.Printf("Send failed: %v\n", err)
		}

	case "stop":
		a.assistant.Close()
		fmt.Println("Assistant session closed")

	default:
		fmt.Println("Usage: assistant start|say|stop")
	}
}

func (a *App) cmdHistory() {
	history := a.assistant.History()
	if len(history) == 0 {
		fmt.Println("No conversation yet")
		return
	}
	for _, msg := range history {
		fmt.Printf("  %-9s %s\n", string(msg.Role)+":", msg.Text)
	}
}

// recordUtterance records from the microphone until Enter is pressed
func (a *App) recordUtterance(promptText string) (domain.AudioPayload, error) {
	if a.recorder == nil {
		return domain.AudioPayload{}, domain.ErrDeviceUnavailable
	}

	if err := a.recorder.Start(context.Background()); err != nil {
		return domain.AudioPayload{}, err
	}

	fmt.Printf("%s - recording, press Enter to stop\n", promptText)
	a.scanner.Scan()

	var captured domain.AudioPayload
	err := a.recorder.Stop(func(payload domain.AudioPayload) error {
		captured = payload
		return nil
	})
	return captured, err
}

func (a *App) prompt(label string) string {
	fmt.Print(label)
	if !a.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(a.scanner.Text())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
