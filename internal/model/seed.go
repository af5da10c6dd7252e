package model

import "time"

// SeedPassword 演示账号的初始口令，首次加载时会被哈希
const SeedPassword = "password123"

// StarterModules 新注册学生的初始模块
func StarterModules() []ModuleStats {
	return []ModuleStats{
		{ID: "m1", Name: "Algebra Basics", Status: ModuleInProgress},
		{ID: "m2", Name: "Newtonian Physics", Status: ModuleLocked},
	}
}

func seedQuestions() []QuizQuestion {
	return []QuizQuestion{
		{ID: 1, Topic: "Algebra Basics", ModuleID: "m1", Question: "If 2x + 4 = 12, what is x?", Options: []string{"3", "4", "6", "8"}, CorrectAnswer: 1},
		{ID: 2, Topic: "Algebra Basics", ModuleID: "m1", Question: "Simplify: 3(x + 2) - 2x", Options: []string{"x + 6", "x + 5", "5x + 6", "x + 2"}, CorrectAnswer: 0},
		{ID: 3, Topic: "Newtonian Physics", ModuleID: "m2", Question: "Which of Newton's laws states that F = ma?", Options: []string{"First Law", "Second Law", "Third Law", "Law of Gravitation"}, CorrectAnswer: 1},
		{ID: 4, Topic: "Newtonian Physics", ModuleID: "m2", Question: "What is the standard unit of Force?", Options: []string{"Joule", "Watt", "Newton", "Pascal"}, CorrectAnswer: 2},
		{ID: 5, Topic: "American History", ModuleID: "m3", Question: "Who wrote the Declaration of Independence?", Options: []string{"George Washington", "Benjamin Franklin", "Thomas Jefferson", "John Adams"}, CorrectAnswer: 2},
	}
}

func seedModules(m1, m2, m3 int, s1, s2, s3 ModuleStatus, t1, t2, t3 int) []ModuleStats {
	return []ModuleStats{
		{ID: "m1", Name: "Algebra Basics", Mastery: m1, TimeSpent: t1, Status: s1},
		{ID: "m2", Name: "Newtonian Physics", Mastery: m2, TimeSpent: t2, Status: s2},
		{ID: "m3", Name: "American History", Mastery: m3, TimeSpent: t3, Status: s3},
		{ID: "m4", Name: "Organic Chemistry", Status: ModuleLocked},
	}
}

func seedStudent(id, name, email string, mastery, topics int, atRisk bool, trend []Sentiment, modules []ModuleStats, voice AIVoice) StudentProfile {
	return StudentProfile{
		ID:                id,
		Name:              name,
		Email:             email,
		Password:          SeedPassword,
		MasteryScore:      mastery,
		TopicsCompleted:   topics,
		AtRisk:            atRisk,
		SentimentTrend:    trend,
		Modules:           modules,
		PreferredLanguage: LanguageEnglish,
		PreferredVoice:    voice,
		SavedResources:    []StudyResource{},
		Conversations:     []ChatConversation{},
		LiveSessions:      []LiveSession{},
		Attempts:          []QuizAttempt{},
	}
}

// SeedSnapshot 演示数据：四名学生、一名教师、一条 AI 决策日志和静态题库
func SeedSnapshot(now time.Time) *Snapshot {
	alice := seedStudent("s1", "Alice Chen", "alice@example.com", 65, 12, false,
		[]Sentiment{SentimentPositive, SentimentPositive},
		seedModules(85, 40, 92, ModuleCompleted, ModuleInProgress, ModuleInProgress, 120, 180, 90), VoiceKore)
	alice.Bio = "Aspiring astrophysicist. Loves solving puzzles."

	marcus := seedStudent("s2", "Marcus Johnson", "marcus@example.com", 45, 3, true,
		[]Sentiment{SentimentFrustrated, SentimentNegative},
		seedModules(45, 30, 0, ModuleInProgress, ModuleInProgress, ModuleLocked, 240, 45, 0), VoicePuck)

	sarah := seedStudent("s3", "Sarah Smith", "sarah@example.com", 78, 8, false,
		[]Sentiment{SentimentNeutral, SentimentPositive},
		seedModules(85, 72, 60, ModuleCompleted, ModuleInProgress, ModuleInProgress, 110, 150, 40), VoiceZephyr)

	david := seedStudent("s4", "David Kim", "david@example.com", 62, 5, true,
		[]Sentiment{SentimentNegative, SentimentNeutral},
		seedModules(75, 40, 0, ModuleCompleted, ModuleInProgress, ModuleLocked, 130, 200, 0), VoiceFenrir)

	return &Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		Students:      []StudentProfile{alice, marcus, sarah, david},
		Teachers: []TeacherProfile{
			{
				ID:                "t1",
				Name:              "Mr. Anderson",
				Email:             "teacher@school.edu",
				Password:          SeedPassword,
				Subject:           "Physics & Mathematics",
				Bio:               "Passionate about making STEM accessible to everyone. 15 years of teaching experience.",
				YearsOfExperience: 15,
				Phone:             "+1 (555) 0123-456",
			},
		},
		Logs: []AIDecisionLog{
			{
				ID:           "l1",
				StudentID:    "s2",
				StudentInput: "I don't get this! Why is the answer 4?",
				AIOutput:     "Let's look at the equation again. What happens if you subtract 2 from both sides?",
				Reasoning:    "Student expressed frustration. Shifted to scaffolding technique to lower cognitive load.",
				Timestamp:    now.Add(-100 * time.Second),
			},
		},
		Messages:     []TeacherMessage{},
		QuestionBank: seedQuestions(),
	}
}
