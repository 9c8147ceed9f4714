package ollama

import "fmt"

// buildCategoryPrompt asks the model for a main category plus described
// sub-categories, as a strict JSON array.
func buildCategoryPrompt(text string) string {
	const maxSnippet = 4000
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return fmt.Sprintf(`次の文章から、該当するメインカテゴリーおよびサブカテゴリーを推測し、サブカテゴリーの説明文も作成せよ。
回答は以下の JSON 配列形式で、メインカテゴリーとそのサブカテゴリー（説明付き）を返すこと。
[
  {
    "categoryname": "（メインカテゴリー名）",
    "sub-category": [
      {
        "categoryname": "（サブカテゴリー名）",
        "description": "（サブカテゴリーの説明）"
      }
    ]
  }
]
文章:
%s
`, snippet)
}
