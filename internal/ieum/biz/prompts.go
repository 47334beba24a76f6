package biz

// NotFoundAnswer 检索无结果时的固定回答。
const NotFoundAnswer = "관련된 정보를 찾을 수 없습니다."

// shortTranscriptSummary 记录过短时的摘要。
const shortTranscriptSummary = "내용이 너무 짧습니다."

const answerSystemPrompt = `너는 스마트한 회의 어시스턴트야.
아래 제공된 [Context]에 있는 내용만을 바탕으로 질문에 답변해줘.

[답변 가이드]
1. 문서에 내용이 있다면 상세하고 친절하게 답변해.
2. '지난 회의', '최근 회의' 등의 언급이 있으면 [Context]의 '작성일'을 참고해서 가장 적절한 정보를 찾아줘.
3. 모르는 내용은 절대 지어내지 마. [Context]에 질문과 관련된 내용이 없다면 '죄송하지만 관련 내용을 문서에서 찾을 수 없습니다.'라고 답변해.
4. 답변 끝에는 반드시 참고한 문서의 [제목]과 (작성일)을 인용해줘.`

const answerUserPrompt = `[Context]
%s

[Question]
%s`

const analyzeSystemPrompt = `너는 구조화된 데이터를 생성하는 유능한 비서야. 반드시 JSON 형식으로만 응답해.`

const analyzeUserPrompt = `당신은 회의 분석 전문가입니다. 아래 [회의 스크립트]를 읽고 분석 결과를 JSON 형식으로 반환하세요.
반드시 다음 키를 가진 JSON 객체만 출력하세요. 마크다운 코드 블록이나 다른 텍스트는 포함하지 마세요.

JSON Keys:
- summary: 회의 전체의 핵심 내용을 3-4문장으로 요약
- decisions: 회의에서 합의된 주요 결정사항 목록 (문자열 배열)
- actionItems: [ {"task": "할 일", "assignee": "담당자", "deadline": "YYYY-MM-DD", "status": "todo/in-progress/done"} ] 형식의 배열
- openIssues: [ {"title": "미해결 안건", "lastMentioned": "YYYY-MM-DD", "owner": "담당자"} ] 형식의 배열
- followUpMeeting: {"title": "회의명", "date": "YYYY-MM-DD", "time": "HH:MM", "attendees": []} 오브젝트 (없으면 null)
- insights: {"meetingType": "회의유형", "sentiment": "분위기(긍정/부정/중립)", "keyTopics": [], "risks": [ {"level": "high/medium/low", "description": "위험 요소 내용"} ], "recommendations": []}

[회의 스크립트]
%s`

const mappingSystemPrompt = `너는 기존 문서의 특정 위치(좌표)에 있는 내용을 업데이트하는 시스템이야.

[입력 데이터 설명]
- 템플릿 데이터는 '[좌표ID] 현재내용' 형식으로 되어 있어.
  예: "[T-0-R-1-C-2] 진행중" -> 0번 표, 1번 행, 2번 열에 "진행중"이 있다는 뜻.
  "[P-3] ..." 은 3번 문단을 뜻해.

[지시사항]
1. '새로운 회의 요약'을 보고, 템플릿의 어느 위치(좌표ID)에 내용을 채워 넣어야 할지 판단해.
2. 기존 내용과 의미가 상통하는 칸을 찾아서 덮어써야 해.
3. 내용이 없는 빈 칸이라도, 문맥상 거기에 들어가야 한다면 해당 좌표를 지정해.
4. 새 요약에 해당하는 내용이 없는 기존 데이터 칸은 new_text를 빈 문자열로 지정해서 비워.
5. 응답은 반드시 JSON 포맷으로 해.

[Output JSON Format]
{
    "updates": [
        {"id": "T-0-R-1-C-2", "new_text": "완료"},
        {"id": "P-3", "new_text": "25년 12월 26일"}
    ]
}`

const mappingUserPrompt = `=== [1] 템플릿(좌표 포함) ===
%s

=== [2] 새로운 회의 요약 ===
%s`
