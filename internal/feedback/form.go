package feedback

import "tickgauge/internal/model"

// Form
// ------------------------------------------------------------
// 피드백 폼의 유지 상태. 렌더링 / 입력 처리는 host 의 몫이고,
// host 는 아래 getter / setter 로만 상태를 읽고 바꾼다.
// tick 루프 (UI 스레드) 전용.
type Form struct {
	requested       bool
	visible         bool
	question        string
	category        model.FeedbackCategory
	dropdownOpen    bool
	allowScreenshot bool
	includeShot     bool
	message         string
	err             string
}

func NewForm() *Form {
	return &Form{allowScreenshot: true}
}

// Open 은 빈 폼을 띄운다 (기본 카테고리 General).
func (f *Form) Open() {
	f.reset()
	f.requested = true
	f.visible = true
}

// OpenWithQuestion 은 질문과 카테고리를 미리 채운 폼을 띄운다.
func (f *Form) OpenWithQuestion(question string, category model.FeedbackCategory) {
	f.Open()
	f.question = question
	f.category = category
}

// Toggle 은 host 의 단축키에 연결된다. 요청이 없으면 새로 열고, 있으면 표시만 전환한다.
func (f *Form) Toggle() {
	if !f.requested {
		f.Open()
		return
	}
	f.visible = !f.visible
}

// Close 는 요청 상태를 해제한다 (취소 버튼).
func (f *Form) Close() {
	f.reset()
}

func (f *Form) reset() {
	allow := f.allowScreenshot
	*f = Form{allowScreenshot: allow}
}

func (f *Form) Requested() bool  { return f.requested }
func (f *Form) Visible() bool    { return f.requested && f.visible }
func (f *Form) Question() string { return f.question }

func (f *Form) Category() model.FeedbackCategory { return f.category }

// SetCategory 는 카테고리를 고르고 dropdown 을 닫는다.
func (f *Form) SetCategory(c model.FeedbackCategory) {
	f.category = c
	f.dropdownOpen = false
}

func (f *Form) ToggleDropdown()    { f.dropdownOpen = !f.dropdownOpen }
func (f *Form) DropdownOpen() bool { return f.dropdownOpen }

// SetAllowScreenshot 이 false 면 스크린샷 토글이 무시된다.
func (f *Form) SetAllowScreenshot(allow bool) {
	f.allowScreenshot = allow
	if !allow {
		f.includeShot = false
	}
}

func (f *Form) AllowScreenshot() bool { return f.allowScreenshot }

func (f *Form) ToggleScreenshot() {
	if f.allowScreenshot {
		f.includeShot = !f.includeShot
	}
}

func (f *Form) IncludeScreenshot() bool { return f.includeShot }

// SetMessage 는 입력 버퍼를 바꾸고 이전 검증 에러를 지운다.
func (f *Form) SetMessage(s string) {
	f.message = s
	f.err = ""
}

func (f *Form) Message() string { return f.message }

// Error 는 마지막 검증 에러 문구 (없으면 "").
func (f *Form) Error() string { return f.err }
