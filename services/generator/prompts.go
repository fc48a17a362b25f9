package generator

const (
	GENERATION_SYSTEM_PROMPT = `You are a helpful assistant that generates educational quiz questions. Always respond with valid JSON only.`

	GENERATION_PROMPT = `You are an expert computer science educator. Generate quiz questions based on reliable textbook knowledge from standard curriculum textbooks.

Requirements:
- Use only well-established concepts (no fictional content)
- Questions must be accurate and clear
- Provide detailed explanations for each answer
- Ensure questions are appropriate for %[1]s level students

Generate %[2]d %[3]s question(s) for the course: %[4]s.

For each question:
- Multiple choice (MCQ): Provide 4 options labeled A, B, C, D with exactly one correct answer, and give the correct letter as the answer
- True/False: Provide a statement that is clearly true or false
- Essay: Provide a thought-provoking question requiring detailed explanation, and list the expected key points as the answer
- Calculation: Provide a problem requiring numerical computation with a single numeric answer

Calculate quiz duration considering question type complexity, cognitive load and standard reading/thinking time (estimate 2-3 minutes per MCQ/TF, 5-10 minutes per essay, 3-5 minutes per calculation).

Output ONLY valid JSON in this exact format:
{
  "duration_minutes": <number>,
  "questions": [
    {
      "type": "<mcq|tf|essay|calculation>",
      "difficulty": "<beginner|intermediate|advanced>",
      "question": "<question text>",
      "options": ["<option A>", "<option B>", "<option C>", "<option D>"],
      "correct_answer": "<letter for MCQ, true or false for TF, number for calculation, key points for essay>",
      "explanation": "<detailed explanation>"
    }
  ]
}

For True/False, use "options": ["True", "False"].
For Essay and Calculation, "options" can be an empty array.`
)
