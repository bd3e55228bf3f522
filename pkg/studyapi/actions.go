// Package studyapi 는 학습 도우미 프록시의 요청/응답 계약(액션 이름, 페이로드, 결과 본문)을 정의한다.
// 서버(dispatch)와 클라이언트(proxyclient)가 같은 타입을 공유한다.
package studyapi

// Action 은 프록시가 수행하는 작업 이름이다.
type Action string

const (
	ActionExtractTextFromFile Action = "extractTextFromFile"
	ActionSummarizeText       Action = "summarizeText"
	ActionAnswerQuestion      Action = "answerQuestion"
	ActionGenerateQuiz        Action = "generateQuiz"
	ActionCreateNotes         Action = "createNotes"
	ActionSuggestVideoTopics  Action = "suggestVideoTopics"
)

// Actions: 지원하는 모든 액션을 선언 순서대로 반환합니다.
func Actions() []Action {
	return []Action{
		ActionExtractTextFromFile,
		ActionSummarizeText,
		ActionAnswerQuestion,
		ActionGenerateQuiz,
		ActionCreateNotes,
		ActionSuggestVideoTopics,
	}
}

// RequiresLLM: LLM 클라이언트가 있어야 실행 가능한 액션인지 반환합니다.
func (a Action) RequiresLLM() bool {
	return a != ActionExtractTextFromFile
}

// Payload 는 액션별 요청 데이터의 닫힌 합 타입이다.
// 패키지 밖에서는 구현할 수 없다.
type Payload interface {
	Action() Action
	// MissingFieldMessage 는 필수 필드가 비었을 때 돌려줄 400 메시지다.
	MissingFieldMessage() string
	sealed()
}

// NewPayload: 액션 이름에 해당하는 빈 페이로드를 생성합니다.
// 알 수 없는 액션이면 false 를 반환합니다.
func NewPayload(action Action) (Payload, bool) {
	switch action {
	case ActionExtractTextFromFile:
		return &ExtractTextFromFile{}, true
	case ActionSummarizeText:
		return &SummarizeText{}, true
	case ActionAnswerQuestion:
		return &AnswerQuestion{}, true
	case ActionGenerateQuiz:
		return &GenerateQuiz{}, true
	case ActionCreateNotes:
		return &CreateNotes{}, true
	case ActionSuggestVideoTopics:
		return &SuggestVideoTopics{}, true
	default:
		return nil, false
	}
}

// ExtractTextFromFile 은 파일 텍스트 추출 요청이다. FileData 는 base64 문자열이다.
type ExtractTextFromFile struct {
	FileName string `json:"fileName" validate:"required"`
	FileData string `json:"fileData" validate:"required"`
}

// SummarizeText 는 요약 요청이다.
type SummarizeText struct {
	Text string `json:"text" validate:"required"`
}

// AnswerQuestion 은 문서 기반 Q&A 요청이다.
// ChatHistory 는 비어 있어도 되지만 반드시 존재해야 한다.
type AnswerQuestion struct {
	ContextText string     `json:"contextText" validate:"required"`
	Question    string     `json:"question" validate:"required"`
	ChatHistory []ChatTurn `json:"chatHistory" validate:"required"`
}

// GenerateQuiz 는 퀴즈 생성 요청이다.
type GenerateQuiz struct {
	ContextText string `json:"contextText" validate:"required"`
}

// CreateNotes 는 노트 생성 요청이다. Topic 은 선택 항목이다.
type CreateNotes struct {
	Text  string `json:"text" validate:"required"`
	Topic string `json:"topic,omitempty"`
}

// SuggestVideoTopics 는 영상 검색어 추천 요청이다.
type SuggestVideoTopics struct {
	Text string `json:"text" validate:"required"`
}

func (*ExtractTextFromFile) Action() Action { return ActionExtractTextFromFile }
func (*SummarizeText) Action() Action       { return ActionSummarizeText }
func (*AnswerQuestion) Action() Action      { return ActionAnswerQuestion }
func (*GenerateQuiz) Action() Action        { return ActionGenerateQuiz }
func (*CreateNotes) Action() Action         { return ActionCreateNotes }
func (*SuggestVideoTopics) Action() Action  { return ActionSuggestVideoTopics }

func (*ExtractTextFromFile) MissingFieldMessage() string {
	return "Missing fileName or fileData for extraction."
}

func (*SummarizeText) MissingFieldMessage() string {
	return "Missing text for summarization."
}

func (*AnswerQuestion) MissingFieldMessage() string {
	return "Missing contextText, question, or chatHistory for Q&A."
}

func (*GenerateQuiz) MissingFieldMessage() string {
	return "Missing contextText for quiz generation."
}

func (*CreateNotes) MissingFieldMessage() string {
	return "Missing text for notes creation."
}

func (*SuggestVideoTopics) MissingFieldMessage() string {
	return "Missing text for video suggestions."
}

func (*ExtractTextFromFile) sealed() {}
func (*SummarizeText) sealed()       {}
func (*AnswerQuestion) sealed()      {}
func (*GenerateQuiz) sealed()        {}
func (*CreateNotes) sealed()         {}
func (*SuggestVideoTopics) sealed()  {}
