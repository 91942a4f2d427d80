package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/labmatcher/labmatcher"
)

const fyneAppID = "yashubustudio.labmatcher"

// Run loads configuration and the recipe dataset and starts the desktop UI.
// Settings changed in the UI are saved back to cfgPath on exit.
func Run(cfgPath string) error {
	cfg, err := labmatcher.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a := fyneapp.NewWithID(fyneAppID)
	logBind := binding.NewString()
	capture := newLogCapture(logBind, 300)
	logger := log.New(io.MultiWriter(os.Stdout, capture), "", log.LstdFlags)

	svc, err := labmatcher.Open(cfg, logger)
	if err != nil {
		logger.Printf("[ERROR] %v", err)
		showFatalError(a.NewWindow(windowTitle), fatalMessage(err))
		return err
	}

	u := buildUI(a, svc, logger, logBind)
	u.w.ShowAndRun()

	if u.dirty {
		if err := labmatcher.SaveConfig(cfgPath, u.cfg); err != nil {
			logger.Printf("Saving config failed: %v", err)
		}
	}
	return nil
}

func fatalMessage(err error) error {
	var dataErr *labmatcher.DataError
	if errors.As(err, &dataErr) {
		return fmt.Errorf("無法載入配方資料，無法進行配對\n%w", err)
	}
	return err
}

func showFatalError(win fyne.Window, err error) {
	content := widget.NewLabel(err.Error())
	content.Wrapping = fyne.TextWrapWord
	win.SetContent(content)
	win.Resize(fyne.NewSize(640, 240))
	dialog.ShowError(err, win)
	win.ShowAndRun()
}
