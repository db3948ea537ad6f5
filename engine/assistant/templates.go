package assistant

// Template is a prompt-engineered task: a fixed system prompt plus a user
// prompt with named slots.
type Template struct {
	Name        string
	Description string
	System      string
	Params      []string
	Prompt      string
}

// Builtin lists the templates served under /assistant and /stream.
var Builtin = []Template{
	{
		Name:        "explain",
		Description: "Explain a topic from the point of view of an expert role",
		System:      "You are an expert {{ .role }}. Answer with depth and precision.",
		Params:      []string{"role", "topic"},
		Prompt: `Explain the following topic from the perspective of a {{ .role }}:
Topic: {{ .topic }}

Give a detailed, professional answer.`,
	},
	{
		Name:        "review_code",
		Description: "Review a code snippet for quality, performance, security and practices",
		System: `You are a senior software engineer performing a code review.
Give feedback on code quality, performance, security issues and common best practices.`,
		Params: []string{"language", "code"},
		Prompt: "Review the following {{ .language }} code:\n\n```{{ .language | lower }}\n{{ .code }}\n```\n\n" +
			"Point out what needs improvement and how to fix it.",
	},
	{
		Name:        "translate",
		Description: "Translate a short text between two languages",
		System:      "You are a professional translator. Translate naturally, keeping the context.",
		Params:      []string{"sourceLang", "targetLang", "text"},
		Prompt:      "Translate the following text from {{ .sourceLang }} to {{ .targetLang }}: {{ .text }}",
	},
	{
		Name:        "summarize",
		Description: "Summarize a text within a word budget",
		System:      "You summarize texts, keeping only the key points.",
		Params:      []string{"text", "maxWords"},
		Prompt: `Summarize the following text in at most {{ .maxWords }} words:

{{ .text }}

Summary:`,
	},
	{
		Name:        "generate_sql",
		Description: "Turn a natural language request into an SQL query",
		System: `You are a database expert who turns natural language requests into SQL.
Use MySQL syntax and write efficient queries.`,
		Params: []string{"tableName", "request"},
		Prompt: `Write an SQL query for this request:

Table: {{ .tableName }}
Request: {{ .request }}

Return only the SQL query and put any explanation in SQL comments.`,
	},
	{
		Name:        "sentiment",
		Description: "Classify the sentiment of a text as positive, negative or neutral",
		System:      "You analyze the sentiment of texts and classify them as positive, negative or neutral.",
		Params:      []string{"text"},
		Prompt: `Analyze the sentiment of this text:
"{{ .text }}"

Answer in this format:
Sentiment: [positive/negative/neutral]
Confidence: [0-100]%
Reason: [short explanation]`,
	},
	{
		Name:        "blog_post",
		Description: "Write a structured blog post about a topic",
		System:      "You are a technical writer who produces clear, well structured blog posts.",
		Params:      []string{"topic"},
		Prompt:      "Write a blog post about: {{ .topic }}\n\nUse a title, an introduction, sections with headings and a conclusion.",
	},
	{
		Name:        "generate_code",
		Description: "Generate code in a language from a description",
		System:      "You are an experienced developer. Produce working, commented code.",
		Params:      []string{"language", "description"},
		Prompt:      "Write {{ .language }} code for the following:\n{{ .description }}",
	},
	{
		Name:        "story",
		Description: "Write a short story in a genre about a topic",
		System:      "You are a creative storyteller.",
		Params:      []string{"genre", "topic"},
		Prompt:      "Write a short {{ .genre }} story about {{ .topic }}.",
	},
	{
		Name:        "analyze",
		Description: "Analyze a document and report its main points",
		System:      "You analyze documents and report their purpose, main points and conclusions.",
		Params:      []string{"text"},
		Prompt:      "Analyze the following document:\n\n{{ .text }}",
	},
	{
		Name:        "lecture",
		Description: "Prepare lecture material on a topic for an audience",
		System:      "You are an instructor who prepares lecture material adapted to the audience.",
		Params:      []string{"topic", "audience"},
		Prompt:      "Prepare lecture material about {{ .topic }} for {{ .audience }}. Include an outline, explanations and examples.",
	},
	{
		Name:        "translate_document",
		Description: "Translate a long document into a target language",
		System:      "You are a professional translator. Keep the structure and formatting of the original text.",
		Params:      []string{"text", "targetLang"},
		Prompt:      "Translate the following document into {{ .targetLang }}:\n\n{{ .text }}",
	},
}
