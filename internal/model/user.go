package model

type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
)

func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type Sentiment string

const (
	SentimentPositive   Sentiment = "POSITIVE"
	SentimentNeutral    Sentiment = "NEUTRAL"
	SentimentNegative   Sentiment = "NEGATIVE"
	SentimentFrustrated Sentiment = "FRUSTRATED"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentFrustrated:
		return true
	}
	return false
}

type SupportedLanguage string

const (
	LanguageEnglish   SupportedLanguage = "English"
	LanguageHindi     SupportedLanguage = "Hindi"
	LanguageBengali   SupportedLanguage = "Bengali"
	LanguageTelugu    SupportedLanguage = "Telugu"
	LanguageTamil     SupportedLanguage = "Tamil"
	LanguageMarathi   SupportedLanguage = "Marathi"
	LanguageGujarati  SupportedLanguage = "Gujarati"
	LanguageKannada   SupportedLanguage = "Kannada"
	LanguageMalayalam SupportedLanguage = "Malayalam"
	LanguagePunjabi   SupportedLanguage = "Punjabi"
	LanguageOdia      SupportedLanguage = "Odia"
	LanguageUrdu      SupportedLanguage = "Urdu"
	LanguageAssamese  SupportedLanguage = "Assamese"
	LanguageBodo      SupportedLanguage = "Bodo"
	LanguageDogri     SupportedLanguage = "Dogri"
	LanguageKashmiri  SupportedLanguage = "Kashmiri"
	LanguageKonkani   SupportedLanguage = "Konkani"
	LanguageMaithili  SupportedLanguage = "Maithili"
	LanguageManipuri  SupportedLanguage = "Manipuri"
	LanguageNepali    SupportedLanguage = "Nepali"
	LanguageSanskrit  SupportedLanguage = "Sanskrit"
	LanguageSantali   SupportedLanguage = "Santali"
	LanguageSindhi    SupportedLanguage = "Sindhi"
)

var supportedLanguages = map[SupportedLanguage]bool{
	LanguageEnglish: true, LanguageHindi: true, LanguageBengali: true, LanguageTelugu: true,
	LanguageTamil: true, LanguageMarathi: true, LanguageGujarati: true, LanguageKannada: true,
	LanguageMalayalam: true, LanguagePunjabi: true, LanguageOdia: true, LanguageUrdu: true,
	LanguageAssamese: true, LanguageBodo: true, LanguageDogri: true, LanguageKashmiri: true,
	LanguageKonkani: true, LanguageMaithili: true, LanguageManipuri: true, LanguageNepali: true,
	LanguageSanskrit: true, LanguageSantali: true, LanguageSindhi: true,
}

func (l SupportedLanguage) Valid() bool {
	return supportedLanguages[l]
}

type AIVoice string

const (
	VoicePuck   AIVoice = "Puck"
	VoiceCharon AIVoice = "Charon"
	VoiceKore   AIVoice = "Kore"
	VoiceFenrir AIVoice = "Fenrir"
	VoiceZephyr AIVoice = "Zephyr"
)

func (v AIVoice) Valid() bool {
	switch v {
	case VoicePuck, VoiceCharon, VoiceKore, VoiceFenrir, VoiceZephyr:
		return true
	}
	return false
}

// StudentProfile 学生档案。Password 仅保存 bcrypt 哈希，对外返回前会被清空
type StudentProfile struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Password          string             `json:"password,omitempty"`
	Phone             string             `json:"phone,omitempty"`
	Bio               string             `json:"bio,omitempty"`
	MasteryScore      int                `json:"masteryScore"`
	TopicsCompleted   int                `json:"topicsCompleted"`
	AtRisk            bool               `json:"atRisk"`
	SentimentTrend    []Sentiment        `json:"sentimentTrend"`
	Modules           []ModuleStats      `json:"modules"`
	PreferredLanguage SupportedLanguage  `json:"preferredLanguage"`
	PreferredVoice    AIVoice            `json:"preferredVoice"`
	SavedResources    []StudyResource    `json:"savedResources"`
	Conversations     []ChatConversation `json:"conversations"`
	LiveSessions      []LiveSession      `json:"liveSessions"`
	Attempts          []QuizAttempt      `json:"attempts"`
}

func (s StudentProfile) Clone() StudentProfile {
	out := s
	out.SentimentTrend = cloneSlice(s.SentimentTrend, nil)
	out.Modules = cloneSlice(s.Modules, nil)
	out.SavedResources = cloneSlice(s.SavedResources, nil)
	out.Conversations = cloneSlice(s.Conversations, ChatConversation.Clone)
	out.LiveSessions = cloneSlice(s.LiveSessions, LiveSession.Clone)
	out.Attempts = cloneSlice(s.Attempts, nil)
	return out
}

// Public 返回去掉凭据的副本
func (s StudentProfile) Public() StudentProfile {
	out := s.Clone()
	out.Password = ""
	return out
}

func (s *StudentProfile) normalize() {
	s.SentimentTrend = emptyIfNil(s.SentimentTrend)
	s.Modules = emptyIfNil(s.Modules)
	s.SavedResources = emptyIfNil(s.SavedResources)
	s.Conversations = emptyIfNil(s.Conversations)
	s.LiveSessions = emptyIfNil(s.LiveSessions)
	s.Attempts = emptyIfNil(s.Attempts)
	for i := range s.Conversations {
		s.Conversations[i].Messages = emptyIfNil(s.Conversations[i].Messages)
	}
	for i := range s.LiveSessions {
		s.LiveSessions[i].Transcript = emptyIfNil(s.LiveSessions[i].Transcript)
	}
}

// ModuleIndex 返回模块在有序列表中的位置，不存在时返回 -1
func (s *StudentProfile) ModuleIndex(moduleID string) int {
	for i := range s.Modules {
		if s.Modules[i].ID == moduleID {
			return i
		}
	}
	return -1
}

func (s *StudentProfile) Conversation(conversationID string) *ChatConversation {
	for i := range s.Conversations {
		if s.Conversations[i].ID == conversationID {
			return &s.Conversations[i]
		}
	}
	return nil
}

type TeacherProfile struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password,omitempty"`
	Subject           string `json:"subject"`
	Bio               string `json:"bio"`
	YearsOfExperience int    `json:"yearsOfExperience"`
	Phone             string `json:"phone,omitempty"`
}

func (t TeacherProfile) Clone() TeacherProfile {
	return t
}

func (t TeacherProfile) Public() TeacherProfile {
	t.Password = ""
	return t
}

// StudentPatch 学生资料的部分更新，nil 字段保持不变
type StudentPatch struct {
	Name              *string            `json:"name"`
	Email             *string            `json:"email"`
	Phone             *string            `json:"phone"`
	Bio               *string            `json:"bio"`
	AtRisk            *bool              `json:"atRisk"`
	PreferredLanguage *SupportedLanguage `json:"preferredLanguage"`
	PreferredVoice    *AIVoice           `json:"preferredVoice"`
}

func (p StudentPatch) Apply(s *StudentProfile) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.Bio != nil {
		s.Bio = *p.Bio
	}
	if p.AtRisk != nil {
		s.AtRisk = *p.AtRisk
	}
	if p.PreferredLanguage != nil {
		s.PreferredLanguage = *p.PreferredLanguage
	}
	if p.PreferredVoice != nil {
		s.PreferredVoice = *p.PreferredVoice
	}
}

type TeacherPatch struct {
	Name              *string `json:"name"`
	Email             *string `json:"email"`
	Subject           *string `json:"subject"`
	Bio               *string `json:"bio"`
	YearsOfExperience *int    `json:"yearsOfExperience"`
	Phone             *string `json:"phone"`
}

func (p TeacherPatch) Apply(t *TeacherProfile) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Email != nil {
		t.Email = *p.Email
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Bio != nil {
		t.Bio = *p.Bio
	}
	if p.YearsOfExperience != nil {
		t.YearsOfExperience = *p.YearsOfExperience
	}
	if p.Phone != nil {
		t.Phone = *p.Phone
	}
}
