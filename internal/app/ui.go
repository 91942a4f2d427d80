package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/labmatcher/labmatcher"
)

const windowTitle = "LAB Value Matcher"

type uiState struct {
	service *labmatcher.Service
	cfg     labmatcher.Config
	logger  *log.Logger
	// dirty is set once the operator changes settings or the profile.
	dirty bool

	w             fyne.Window
	lEntry        *widget.Entry
	aEntry        *widget.Entry
	bEntry        *widget.Entry
	includeEntry  *widget.Entry
	excludeEntry  *widget.Entry
	tabs          *container.AppTabs
	status        *widget.Label
	statusBind    binding.String
	profileLabel  *widget.Label
	configSummary *widget.Label
	log           *widget.Entry

	progress   *widget.ProgressBarInfinite
	matchBtn   *widget.Button
	profileBtn *widget.Button
	exportBtn  *widget.Button
	batchBtn   *widget.Button

	last *labmatcher.Result
}

func buildUI(a fyne.App, svc *labmatcher.Service, logger *log.Logger, logBind binding.String) *uiState {
	u := &uiState{service: svc, logger: logger}
	u.cfg = svc.Config()
	u.w = a.NewWindow(windowTitle)

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set(u.text("請輸入測量值", "Enter the measured color"))

	u.lEntry = widget.NewEntry()
	u.aEntry = widget.NewEntry()
	u.bEntry = widget.NewEntry()
	u.lEntry.SetPlaceHolder("L*")
	u.aEntry.SetPlaceHolder("a*")
	u.bEntry.SetPlaceHolder("b*")
	u.includeEntry = widget.NewEntry()
	u.excludeEntry = widget.NewEntry()
	u.bEntry.OnSubmitted = func(string) { u.onMatch() }

	u.log = widget.NewEntryWithData(logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.Disable()

	u.status = widget.NewLabelWithData(u.statusBind)
	u.profileLabel = widget.NewLabel("")
	u.configSummary = widget.NewLabel("")
	u.configSummary.Wrapping = fyne.TextWrapWord

	u.matchBtn = widget.NewButtonWithIcon("開始配對", theme.SearchIcon(), func() { u.onMatch() })
	u.profileBtn = widget.NewButtonWithIcon("導入 ICC Profile", theme.FolderOpenIcon(), func() { u.onLoadProfile() })
	u.exportBtn = widget.NewButtonWithIcon("匯出配方資料", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.batchBtn = widget.NewButtonWithIcon("批次配對", theme.ListIcon(), func() { u.onBatch() })
	settingsBtn := widget.NewButtonWithIcon("設定", theme.SettingsIcon(), func() { u.openSettings() })
	u.progress = widget.NewProgressBarInfinite()
	u.progress.Hide()

	u.tabs = container.NewAppTabs(container.NewTabItem(u.text("配方", "Recipes"), widget.NewLabel("")))

	form := widget.NewForm(
		widget.NewFormItem("測量L值", u.lEntry),
		widget.NewFormItem("測量a值", u.aEntry),
		widget.NewFormItem("測量b值", u.bEntry),
		widget.NewFormItem("配方砂粉指定", u.includeEntry),
		widget.NewFormItem("配方砂粉排除", u.excludeEntry),
	)
	left := container.NewVBox(
		form,
		container.NewGridWithColumns(2, u.matchBtn, u.profileBtn),
		container.NewGridWithColumns(3, u.exportBtn, u.batchBtn, settingsBtn),
		u.progress,
		u.status,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("ICC Profile", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.profileLabel,
		widget.NewLabelWithStyle(u.text("設定", "Settings"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		u.configSummary,
		widget.NewSeparator(),
		widget.NewLabelWithStyle(u.text("紀錄", "Log"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	leftPane := container.NewBorder(left, nil, nil, nil, u.log)

	split := container.NewHSplit(leftPane, u.tabs)
	split.Offset = 0.38

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1080, 760))
	u.updateProfileLabel()
	u.updateConfigSummary()
	return u
}

// text picks the wording for the configured language.
func (u *uiState) text(zh, en string) string {
	if u.cfg.Language == labmatcher.LangEN {
		return en
	}
	return zh
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) query() (labmatcher.Lab, string, string, error) {
	q, err := parseTarget(u.lEntry.Text, u.aEntry.Text, u.bEntry.Text)
	return q, filterWord(u.includeEntry.Text), filterWord(u.excludeEntry.Text), err
}

func (u *uiState) onMatch() {
	q, include, exclude, err := u.query()
	if err != nil {
		u.logf("Input rejected: %v", err)
		u.setStatus(u.text("測量值需為數字", "L, a and b must be numbers"))
		return
	}
	res := u.service.Match(context.Background(), q, include, exclude)
	u.last = &res
	u.showResult(res)
	if len(res.Suggestions) == 0 {
		u.setStatus(noResultText(u.cfg.Language))
		return
	}
	u.setStatus(fmt.Sprintf(u.text("配對完成 %d 筆", "%d recipe(s) matched"), len(res.Suggestions)))
}

func (u *uiState) showResult(res labmatcher.Result) {
	if len(res.Suggestions) == 0 {
		msg := canvas.NewText(noResultText(u.cfg.Language), theme.Color(theme.ColorNameError))
		msg.TextStyle = fyne.TextStyle{Bold: true}
		msg.TextSize = theme.TextSubHeadingSize()
		u.tabs.SetItems([]*container.TabItem{
			container.NewTabItem(tabTitle(1, u.cfg.Language), container.NewPadded(msg)),
		})
		return
	}
	cards := buildCards(res, u.cfg.Language)
	items := make([]*container.TabItem, len(cards))
	for i, c := range cards {
		items[i] = container.NewTabItem(c.Title, u.cardContent(c))
	}
	u.tabs.SetItems(items)
	u.tabs.SelectIndex(0)
}

func (u *uiState) cardContent(c recipeCard) fyne.CanvasObject {
	target := swatchRect(c.Target)
	swatch := swatchRect(c.Swatch)

	verdictColor := theme.Color(theme.ColorNameSuccess)
	if c.Unreliable {
		verdictColor = theme.Color(theme.ColorNameError)
	}
	verdict := canvas.NewText(c.Verdict, verdictColor)
	verdict.TextStyle = fyne.TextStyle{Bold: true}

	deltaE := widget.NewLabelWithStyle(c.DeltaE, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	colorInfo := container.NewVBox(widget.NewLabel(c.Lab), widget.NewLabel(c.SwatchHex))

	fields := widget.NewForm()
	for _, f := range visibleFields(c.Fields, u.cfg.Columns) {
		value := widget.NewLabel(f.Value)
		value.Wrapping = fyne.TextWrapWord
		fields.Append(f.Name+":", value)
	}

	desc := widget.NewLabel(c.Description)
	desc.Wrapping = fyne.TextWrapWord
	cmyk := widget.NewLabelWithStyle(c.CMYK, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	return container.NewVScroll(container.NewVBox(
		verdict,
		deltaE,
		container.NewHBox(
			container.NewVBox(target, widget.NewLabel(u.text("目標", "Target"))),
			container.NewVBox(swatch, widget.NewLabel(u.text("配方", "Recipe"))),
			colorInfo,
		),
		widget.NewSeparator(),
		fields,
		desc,
		cmyk,
	))
}

func swatchRect(c color.Color) *canvas.Rectangle {
	r := canvas.NewRectangle(c)
	r.SetMinSize(fyne.NewSize(96, 56))
	r.StrokeColor = theme.Color(theme.ColorNameForeground)
	r.StrokeWidth = 1
	return r
}

func (u *uiState) onLoadProfile() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		if err := u.service.SetProfilePath(path); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.cfg = u.service.Config()
		u.dirty = true
		u.updateProfileLabel()
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".icc", ".icm"}))
	fd.Show()
}

func (u *uiState) onExport() {
	q, include, exclude, err := u.query()
	if err != nil {
		if u.last == nil {
			dialog.ShowInformation(u.text("訊息", "Info"), u.text("沒有可匯出的配方", "Nothing to export"), u.w)
			return
		}
		q, include, exclude = u.last.Query, u.last.Include, u.last.Exclude
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if uc == nil {
			return
		}
		path := uc.URI().Path()
		_ = uc.Close()
		if err := u.service.ExportQuery(path, q, include, exclude); err != nil {
			var ioErr *labmatcher.IOError
			if errors.As(err, &ioErr) {
				err = fmt.Errorf("%s: %w", u.text("匯出失敗", "Export failed"), err)
			}
			dialog.ShowError(err, u.w)
			return
		}
		u.setStatus(fmt.Sprintf(u.text("已匯出至 %s", "Exported to %s"), filepath.Base(path)))
	}, u.w)
	fd.SetFileName(filepath.Base(u.cfg.ExportPath))
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		if b {
			u.matchBtn.Disable()
			u.exportBtn.Disable()
			u.batchBtn.Disable()
			u.profileBtn.Disable()
			u.progress.Show()
			u.progress.Start()
		} else {
			u.matchBtn.Enable()
			u.exportBtn.Enable()
			u.batchBtn.Enable()
			u.profileBtn.Enable()
			u.progress.Stop()
			u.progress.Hide()
		}
	})
}

func (u *uiState) onBatch() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		name := filepath.Base(rc.URI().Path())
		delim := ','
		if ext := strings.ToLower(filepath.Ext(name)); ext == ".tsv" || ext == ".tab" {
			delim = '\t'
		}
		queries, skipped, err := labmatcher.ReadBatch(bytes.NewReader(data), delim)
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		for _, line := range skipped {
			u.logf("%s line %d skipped: missing or invalid L/A/B", name, line)
		}
		if len(queries) == 0 {
			dialog.ShowInformation(u.text("訊息", "Info"), u.text("檔案中沒有可配對的顏色", "No usable colors in file"), u.w)
			return
		}
		u.runBatch(name, queries)
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".tsv", ".tab"}))
	fd.Show()
}

func (u *uiState) runBatch(name string, queries []labmatcher.BatchQuery) {
	u.setBusy(true)
	u.setStatus(fmt.Sprintf(u.text("批次配對中 (%d 筆)...", "Matching %d colors..."), len(queries)))
	start := time.Now()
	lang := u.cfg.Language

	go func() {
		results := u.service.MatchBatch(context.Background(), queries)
		u.setBusy(false)
		u.setStatus(fmt.Sprintf(u.text("批次完成 %d 筆 (%.1fs)", "Batch done: %d colors (%.1fs)"), len(results), time.Since(start).Seconds()))
		fyne.Do(func() {
			u.saveBatch(name, results, lang)
		})
	}()
}

func (u *uiState) saveBatch(source string, results []labmatcher.BatchResult, lang labmatcher.Language) {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()
		if err := labmatcher.WriteBatchCSV(uc, results, lang); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logf("Batch results for %s saved to %s", source, uc.URI().Path())
	}, u.w)
	fd.SetFileName(strings.TrimSuffix(source, filepath.Ext(source)) + "_matches.csv")
	fd.Show()
}

func (u *uiState) openSettings() {
	cfg := u.cfg
	topOptions := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		topOptions = append(topOptions, strconv.Itoa(i))
	}
	topSel := widget.NewSelect(topOptions, nil)
	topSel.SetSelected(strconv.Itoa(cfg.TopN))

	warnEntry := widget.NewEntry()
	warnEntry.SetText(strconv.FormatFloat(cfg.WarnDeltaE, 'f', -1, 64))

	langSel := widget.NewSelect([]string{string(labmatcher.LangZhTW), string(labmatcher.LangEN)}, nil)
	langSel.SetSelected(string(cfg.Language))

	toolEntry := widget.NewEntry()
	toolEntry.SetText(cfg.Conversion.Tool)
	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(strconv.Itoa(cfg.Conversion.TimeoutSeconds))

	form := &widget.Form{Items: []*widget.FormItem{
		{Text: "Top-N", Widget: topSel},
		{Text: u.text("Delta E 警告值", "Delta E warning"), Widget: warnEntry},
		{Text: u.text("語言", "Language"), Widget: langSel},
		{Text: "xicclu", Widget: toolEntry},
		{Text: u.text("轉換逾時(秒)", "Conversion timeout (s)"), Widget: timeoutEntry},
	}}

	dialog.NewCustomConfirm(u.text("設定", "Settings"), "OK", u.text("取消", "Cancel"), form, func(ok bool) {
		if !ok {
			return
		}
		u.applySettings(settingsInput{
			TopN:    topSel.Selected,
			Warn:    warnEntry.Text,
			Lang:    langSel.Selected,
			Tool:    toolEntry.Text,
			Timeout: timeoutEntry.Text,
		})
	}, u.w).Show()
}

type settingsInput struct {
	TopN    string
	Warn    string
	Lang    string
	Tool    string
	Timeout string
}

func (u *uiState) applySettings(in settingsInput) {
	newCfg := u.cfg.Clone()
	if v, err := strconv.Atoi(in.TopN); err == nil && v > 0 {
		newCfg.TopN = v
	}
	if v, err := strconv.ParseFloat(in.Warn, 64); err == nil && v > 0 {
		newCfg.WarnDeltaE = v
	}
	if in.Lang != "" {
		newCfg.Language = labmatcher.Language(in.Lang)
	}
	if in.Tool != "" {
		newCfg.Conversion.Tool = in.Tool
	}
	if v, err := strconv.Atoi(in.Timeout); err == nil && v >= 0 {
		newCfg.Conversion.TimeoutSeconds = v
	}
	if err := u.service.UpdateConfig(newCfg); err != nil {
		dialog.ShowError(err, u.w)
		return
	}
	u.cfg = u.service.Config()
	u.dirty = true
	u.updateConfigSummary()
	u.logf("Settings updated")
}

func (u *uiState) updateProfileLabel() {
	path := u.cfg.Conversion.ProfilePath
	if path == "" {
		u.profileLabel.SetText(u.text("未載入 (不轉換 CMYK)", "none (CMYK conversion off)"))
		return
	}
	u.profileLabel.SetText(filepath.Base(path))
}

func (u *uiState) updateConfigSummary() {
	cfg := u.cfg
	summary := fmt.Sprintf("Top-N:%d / Delta E ≤ %.2f / %s / %s:%d",
		cfg.TopN, cfg.WarnDeltaE, cfg.Language, u.text("配方", "recipes"), u.service.Store().Len())
	u.configSummary.SetText(summary)
}

func (u *uiState) logf(format string, args ...any) {
	if u.logger != nil {
		u.logger.Printf(format, args...)
	}
}
