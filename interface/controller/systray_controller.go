//go:build darwin
// +build darwin

package controller

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ca-srg/relaunch/assets"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/usecase/impl"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// SystrayController owns the menu bar item. It shows the restart prompt as
// menu entries, posts notifications and exposes the menu actions as channels.
type SystrayController struct {
	statusService usecase.StatusService
	registry      usecase.SurfaceRegistry

	// Menu items
	statusItem       *systray.MenuItem
	restartNowItem   *systray.MenuItem
	laterItem        *systray.MenuItem
	checkNowItem     *systray.MenuItem
	holdItem         *systray.MenuItem
	settingsItem     *systray.MenuItem
	startAtLoginItem *systray.MenuItem
	quitItem         *systray.MenuItem

	// Channels for menu actions
	checkNowChan chan struct{}
	settingsChan chan struct{}
	quitChan     chan struct{}
	exitChan     chan struct{}

	mu      sync.Mutex
	ready   bool
	respond func(entity.DialogOutcome)

	// hold keeps restarts away while checked
	hold           *impl.ProgressSurface
	unregisterHold func()

	loginItemManager *LoginItemManager
}

var (
	_ usecase.PromptPresenter = (*SystrayController)(nil)
	_ usecase.Notifier        = (*SystrayController)(nil)
)

// NewSystrayController creates a new system tray controller
func NewSystrayController(statusService usecase.StatusService, registry usecase.SurfaceRegistry) *SystrayController {
	loginItemManager, _ := NewLoginItemManager()

	return &SystrayController{
		statusService:    statusService,
		registry:         registry,
		checkNowChan:     make(chan struct{}, 1),
		settingsChan:     make(chan struct{}, 1),
		quitChan:         make(chan struct{}, 1),
		exitChan:         make(chan struct{}),
		hold:             impl.NewProgressSurface("Restarts on hold"),
		loginItemManager: loginItemManager,
	}
}

// OnReady is called when the system tray is ready
func (s *SystrayController) OnReady() {
	systray.SetTemplateIcon(assets.IconData, assets.IconData)
	systray.SetTooltip("relaunch")

	s.statusItem = systray.AddMenuItem("Starting...", "Scheduler status")
	s.statusItem.Disable()
	systray.AddSeparator()

	s.restartNowItem = systray.AddMenuItem("Restart Now", "Restart into the new version")
	s.laterItem = systray.AddMenuItem("Later", "Postpone the restart to the next window")
	s.restartNowItem.Hide()
	s.laterItem.Hide()

	s.checkNowItem = systray.AddMenuItem("Check for Updates Now", "Run an update check immediately")
	s.holdItem = systray.AddMenuItemCheckbox("Hold Restarts", "Veto restarts while checked", false)
	systray.AddSeparator()
	s.settingsItem = systray.AddMenuItem("Settings...", "Open the configuration file")
	s.startAtLoginItem = systray.AddMenuItemCheckbox("Start at Login", "Start relaunch when you log in", false)
	if s.loginItemManager != nil {
		if isLoginItem, _ := s.loginItemManager.IsLoginItem(); isLoginItem {
			s.startAtLoginItem.Check()
		}
	}
	systray.AddSeparator()
	s.quitItem = systray.AddMenuItem("Quit", "Quit relaunch")

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	go s.handleMenuClicks()
}

// OnExit is called when the system tray is exiting
func (s *SystrayController) OnExit() {
	s.mu.Lock()
	s.ready = false
	if s.unregisterHold != nil {
		s.unregisterHold()
		s.unregisterHold = nil
	}
	s.mu.Unlock()
	close(s.exitChan)
}

// handleMenuClicks handles clicks on menu items
func (s *SystrayController) handleMenuClicks() {
	for {
		select {
		case <-s.exitChan:
			return

		case <-s.restartNowItem.ClickedCh:
			s.answer(entity.DialogOutcomeAccept)

		case <-s.laterItem.ClickedCh:
			s.answer(entity.DialogOutcomeCancel)

		case <-s.checkNowItem.ClickedCh:
			trigger(s.checkNowChan)

		case <-s.holdItem.ClickedCh:
			s.toggleHold()

		case <-s.settingsItem.ClickedCh:
			trigger(s.settingsChan)

		case <-s.startAtLoginItem.ClickedCh:
			s.handleStartAtLoginToggle()

		case <-s.quitItem.ClickedCh:
			// Quitting while a prompt is open declines it
			s.answer(entity.DialogOutcomeCancel)
			trigger(s.quitChan)
		}
	}
}

func trigger(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

// CheckNowChannel signals "Check for Updates Now"
func (s *SystrayController) CheckNowChannel() <-chan struct{} { return s.checkNowChan }

// SettingsChannel signals "Settings..."
func (s *SystrayController) SettingsChannel() <-chan struct{} { return s.settingsChan }

// QuitChannel signals "Quit"
func (s *SystrayController) QuitChannel() <-chan struct{} { return s.quitChan }

// ShowRestartPrompt reveals the Restart Now and Later entries. Runs on the UI thread.
func (s *SystrayController) ShowRestartPrompt(request entity.RestartRequest, respond func(entity.DialogOutcome)) (func(), error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil, fmt.Errorf("menu bar is not ready")
	}
	s.respond = respond
	s.mu.Unlock()

	s.restartNowItem.SetTitle(fmt.Sprintf("Restart Now (%s)", request.Version()))
	s.restartNowItem.Show()
	s.laterItem.Show()
	systray.SetTitle("↻")
	_ = s.Notify("relaunch", fmt.Sprintf("%s Restarting in %s unless postponed.",
		request.Describe(), request.WaitInterval().Round(time.Second)))

	var once sync.Once
	dismiss := func() {
		once.Do(func() {
			s.mu.Lock()
			s.respond = nil
			s.mu.Unlock()
			s.restartNowItem.Hide()
			s.laterItem.Hide()
			systray.SetTitle("")
		})
	}
	return dismiss, nil
}

func (s *SystrayController) answer(outcome entity.DialogOutcome) {
	s.mu.Lock()
	respond := s.respond
	s.mu.Unlock()
	if respond != nil {
		respond(outcome)
	}
}

// toggleHold registers a running progress surface so the safety audit vetoes restarts
func (s *SystrayController) toggleHold() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unregisterHold != nil {
		s.hold.Finish()
		s.unregisterHold()
		s.unregisterHold = nil
		s.holdItem.Uncheck()
		return
	}
	s.hold.Start()
	s.unregisterHold = s.registry.Register(s.hold)
	s.holdItem.Check()
}

// Notify posts a macOS notification and falls back to the tooltip
func (s *SystrayController) Notify(title, message string) error {
	script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(message), strconv.Quote(title))
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		systray.SetTooltip(fmt.Sprintf("%s: %s", title, message))
		return fmt.Errorf("failed to post notification: %w", err)
	}
	return nil
}

// UpdateStatus updates the status line and tooltip
func (s *SystrayController) UpdateStatus(status *usecase.StatusInfo) {
	if status == nil {
		return
	}
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		return
	}

	line := "Stopped"
	if status.IsRunning {
		line = fmt.Sprintf("%s · %s", status.CurrentVersion, status.State)
		if status.NextCheckAt != nil {
			line += " · next check " + status.NextCheckAt.Format("Mon 15:04")
		}
	}
	s.statusItem.SetTitle(line)

	tooltip := "relaunch\n" + line
	if status.LastResult != "" && status.LastCycleAt != nil {
		tooltip += fmt.Sprintf("\nLast cycle: %s at %s", status.LastResult, status.LastCycleAt.Format("15:04"))
	}
	if status.LastError != nil {
		tooltip += fmt.Sprintf("\nLast error: %v", status.LastError)
	}
	systray.SetTooltip(tooltip)
}

// handleStartAtLoginToggle handles toggling the start at login setting
func (s *SystrayController) handleStartAtLoginToggle() {
	if s.loginItemManager == nil {
		_ = s.Notify("Error", "Login item management not available")
		return
	}

	isLoginItem, err := s.loginItemManager.IsLoginItem()
	if err != nil {
		_ = s.Notify("Error", fmt.Sprintf("Failed to check login item status: %v", err))
		return
	}

	newState := !isLoginItem
	if err := s.loginItemManager.SetLoginItem(newState); err != nil {
		_ = s.Notify("Error", fmt.Sprintf("Failed to update login item: %v", err))
		return
	}

	if newState {
		s.startAtLoginItem.Check()
		_ = s.Notify("relaunch", "relaunch will start at login")
	} else {
		s.startAtLoginItem.Uncheck()
		_ = s.Notify("relaunch", "relaunch will not start at login")
	}
}
